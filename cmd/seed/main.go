// Command seed loads the default category tree. Running it again only adds
// what is missing.
package main

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/config"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/db"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/catalog"
)

var defaultCategories = []catalog.CategoryInput{
	{
		Name:          "Graphics & Design",
		Description:   "Logos, branding, illustration and print.",
		SubCategories: []string{"Logo Design", "Brand Style Guides", "Illustration", "Flyer Design", "Social Media Design"},
	},
	{
		Name:          "Programming & Tech",
		Description:   "Websites, apps, scripts and support.",
		SubCategories: []string{"Website Development", "Mobile Apps", "Backend Development", "Bug Fixing", "Chatbots"},
	},
	{
		Name:          "Digital Marketing",
		Description:   "Reach and grow an audience.",
		SubCategories: []string{"SEO", "Social Media Marketing", "Email Marketing", "Content Marketing"},
	},
	{
		Name:          "Writing & Translation",
		Description:   "Copy, articles and translation.",
		SubCategories: []string{"Articles & Blog Posts", "Copywriting", "Translation", "Proofreading & Editing"},
	},
	{
		Name:          "Video & Animation",
		Description:   "Editing, motion graphics and explainers.",
		SubCategories: []string{"Video Editing", "Explainers", "Logo Animation", "Subtitles & Captions"},
	},
	{
		Name:          "Music & Audio",
		Description:   "Voice, mixing and production.",
		SubCategories: []string{"Voice Over", "Mixing & Mastering", "Podcast Editing", "Jingles"},
	},
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN, db.Options{})
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal(err)
	}

	svc := catalog.NewService(gdb, nil)
	ctx := context.Background()
	for _, in := range defaultCategories {
		cat, created, err := svc.EnsureCategory(ctx, in)
		if err != nil {
			log.Fatalf("seed %q: %v", in.Name, err)
		}
		if created {
			log.Infof("created category %s", cat.Slug)
		} else {
			log.Infof("category %s already present", cat.Slug)
		}
	}
}
