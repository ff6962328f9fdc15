package account

import (
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
)

// DecodeProfileForm reads a multipart profile setup. Text fields are plain
// values; educations, skills, languages and portfolio_items are JSON. The
// media of portfolio item i arrives as the file part "portfolio_items[i].media".
func DecodeProfileForm(form *multipart.Form) (ProfileInput, error) {
	var (
		in   ProfileInput
		errs = apperr.FieldErrors{}
	)
	value := func(key string) (string, bool) {
		v, ok := form.Value[key]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}

	if v, ok := value("profile_title"); ok {
		in.ProfileTitle = &v
	}
	if v, ok := value("bio"); ok {
		in.Bio = &v
	}
	if v, ok := value("portfolio_link"); ok {
		in.PortfolioLink = &v
	}
	if v, ok := value("educations"); ok {
		in.Educations = decodeJSON[[]EducationInput]("educations", v, errs)
	}
	if v, ok := value("skills"); ok {
		in.Skills = decodeJSON[[]LeveledInput]("skills", v, errs)
	}
	if v, ok := value("languages"); ok {
		in.Languages = decodeJSON[[]LeveledInput]("languages", v, errs)
	}
	if v, ok := value("portfolio_items"); ok {
		in.PortfolioItems = decodeJSON[[]PortfolioItemInput]("portfolio_items", v, errs)
	}

	if in.PortfolioItems != nil {
		items := *in.PortfolioItems
		for i := range items {
			if files := form.File[fmt.Sprintf("portfolio_items[%d].media", i)]; len(files) > 0 {
				items[i].Media = files[0]
			}
		}
	}
	for key := range form.File {
		if !knownMediaPart(key, in.PortfolioItems) {
			errs.Add(key, "No portfolio item for this file")
		}
	}
	return in, errs.Err()
}

func decodeJSON[T any](field, v string, errs apperr.FieldErrors) *T {
	var out T
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		errs.Add(field, "Invalid JSON: "+err.Error())
		return nil
	}
	return &out
}

func knownMediaPart(key string, items *[]PortfolioItemInput) bool {
	if items == nil {
		return false
	}
	for i := range *items {
		if key == fmt.Sprintf("portfolio_items[%d].media", i) {
			return true
		}
	}
	return false
}
