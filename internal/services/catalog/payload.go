package catalog

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
)

type galleryMeta struct {
	MediaType string `json:"media_type"`
}

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true}

// DecodeGigForm reads a multipart gig request. packages, faqs, tags and
// gallery_meta are JSON-encoded fields; any that fail to decode reject the
// whole request instead of being dropped.
func DecodeGigForm(form *multipart.Form) (GigPatch, Media, error) {
	var (
		p     GigPatch
		media Media
		errs  = apperr.FieldErrors{}
	)
	value := func(key string) (string, bool) {
		v, ok := form.Value[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	if v, ok := value("title"); ok {
		p.Title = &v
	}
	if v, ok := value("description"); ok {
		p.Description = &v
	}
	if v, ok := value("status"); ok {
		p.Status = &v
	}
	if v, ok := value("category_id"); ok {
		p.CategoryID = parseUint("category_id", v, errs)
	}
	if v, ok := value("subcategory_id"); ok {
		if strings.TrimSpace(v) == "" {
			p.ClearSubCategory = true
		} else {
			p.SubCategoryID = parseUint("subcategory_id", v, errs)
		}
	}
	if v, ok := value("delivery_time"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs.Add("delivery_time", "Must be a whole number of days")
		} else {
			p.DeliveryTime = &n
		}
	}
	if v, ok := value("tags"); ok {
		tags, err := decodeTags(v)
		if err != nil {
			errs.Add("tags", "Must be a JSON array of strings or a comma separated list")
		} else {
			p.Tags = &tags
		}
	}
	if v, ok := value("packages"); ok {
		var pk []PackageInput
		if err := json.Unmarshal([]byte(v), &pk); err != nil {
			errs.Add("packages", "Invalid JSON: "+err.Error())
		} else {
			p.Packages = &pk
		}
	}
	if v, ok := value("faqs"); ok {
		var fq []FAQInput
		if err := json.Unmarshal([]byte(v), &fq); err != nil {
			errs.Add("faqs", "Invalid JSON: "+err.Error())
		} else {
			p.FAQs = &fq
		}
	}

	if files := form.File["thumbnail_image"]; len(files) > 0 {
		media.Thumbnail = files[0]
	}
	files := form.File["gallery_files"]
	var meta []galleryMeta
	if v, ok := value("gallery_meta"); ok {
		if err := json.Unmarshal([]byte(v), &meta); err != nil {
			errs.Add("gallery_meta", "Invalid JSON: "+err.Error())
		} else if len(meta) != len(files) {
			errs.Add("gallery_meta", fmt.Sprintf("Expected %d entries, one per gallery file", len(files)))
		}
	}
	for i, fh := range files {
		mt := models.MediaImage
		if videoExts[strings.ToLower(filepath.Ext(fh.Filename))] {
			mt = models.MediaVideo
		}
		if i < len(meta) && meta[i].MediaType != "" {
			mt = models.MediaType(strings.ToLower(meta[i].MediaType))
		}
		media.Gallery = append(media.Gallery, Upload{MediaType: mt, File: fh})
	}

	return p, media, errs.Err()
}

// Input turns a decoded patch into a full create request.
func (p GigPatch) Input() GigInput {
	var in GigInput
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.CategoryID != nil {
		in.CategoryID = *p.CategoryID
	}
	in.SubCategoryID = p.SubCategoryID
	if p.DeliveryTime != nil {
		in.DeliveryTime = *p.DeliveryTime
	}
	if p.Tags != nil {
		in.Tags = *p.Tags
	}
	if p.Status != nil {
		in.Status = *p.Status
	}
	if p.Packages != nil {
		in.Packages = *p.Packages
	}
	if p.FAQs != nil {
		in.FAQs = *p.FAQs
	}
	return in
}

func parseUint(field, v string, errs apperr.FieldErrors) *uint {
	n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	if err != nil || n == 0 {
		errs.Add(field, "Must be a positive id")
		return nil
	}
	u := uint(n)
	return &u
}

func decodeTags(v string) ([]string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(v, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(v), &tags); err != nil {
			return nil, err
		}
		return tags, nil
	}
	tags := []string{}
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}
