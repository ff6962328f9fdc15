package account

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func fullProfile() ProfileInput {
	return ProfileInput{
		ProfileTitle: ptr("Full-stack web developer"),
		Bio:          ptr(strings.Repeat("I build reliable web apps. ", 3)),
		Educations: &[]EducationInput{
			{Institution: "State University", Degree: "BSc", FieldOfStudy: "Computer Science", StartYear: 2015, EndYear: ptr(2019)},
		},
		Skills: &[]LeveledInput{
			{Name: "Go", Level: "expert"},
			{Name: "React", Level: "advanced"},
		},
		Languages: &[]LeveledInput{{Name: "English", Level: "fluent"}},
		PortfolioItems: &[]PortfolioItemInput{
			{Title: "Shop", Description: "An online shop for books", URL: "https://example.com/shop"},
		},
	}
}

func TestValidateProfile(t *testing.T) {
	require.NoError(t, ValidateProfile(fullProfile(), 2026))

	in := ProfileInput{
		ProfileTitle:  ptr(strings.Repeat("t", 101)),
		PortfolioLink: ptr("not a url"),
		Educations: &[]EducationInput{
			{Institution: "U", Degree: "BA", StartYear: 2020, EndYear: ptr(2018)},
			{Institution: "U", Degree: "BA", StartYear: 1800},
		},
		Skills: &[]LeveledInput{
			{Name: "Go", Level: "guru"},
			{Name: "go", Level: "expert"},
		},
		Languages:      &[]LeveledInput{{Name: "", Level: "native"}},
		PortfolioItems: &[]PortfolioItemInput{{Title: "x", Description: "short"}},
	}
	err := ValidateProfile(in, 2026)
	e := apperr.As(err)
	require.Equal(t, apperr.KindValidation, e.Kind)

	for _, key := range []string{
		"profile_title",
		"portfolio_link",
		"educations[0].end_year",
		"educations[1].start_year",
		"skills[0].level",
		"skills[1].name",
		"languages[0].name",
		"portfolio_items[0].description",
		"portfolio_items[0].url",
	} {
		assert.Contains(t, e.Fields, key)
	}
}

func TestValidateProfileAllowsFutureEndWithinFiveYears(t *testing.T) {
	in := ProfileInput{Educations: &[]EducationInput{
		{Institution: "U", Degree: "MSc", StartYear: 2025, EndYear: ptr(2031)},
	}}
	assert.NoError(t, ValidateProfile(in, 2026))

	in.Educations = &[]EducationInput{{Institution: "U", Degree: "MSc", StartYear: 2025, EndYear: ptr(2032)}}
	assert.Error(t, ValidateProfile(in, 2026))
}

func TestRegisterAndAuthenticate(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleBuyer, u.CurrentRole)
	assert.False(t, u.IsEmailVerified)

	_, err = svc.Register(ctx, RegisterInput{Username: "alice", Email: "alice@example.com", Password: "x"})
	e := apperr.As(err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Contains(t, e.Fields, "username")
	assert.Contains(t, e.Fields, "email")

	got, err := svc.Authenticate(ctx, "ALICE@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = svc.Authenticate(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.Equal(t, apperr.KindUnauthorized, apperr.As(err).Kind)
}

func TestVerifyEmailRejectsStaleAddress(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()
	u := testutil.NewUser(t, gdb, func(u *models.User) { u.IsEmailVerified = false })

	_, err := svc.VerifyEmail(ctx, u.ID, "old@example.com")
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	got, err := svc.VerifyEmail(ctx, u.ID, u.Email)
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)
}

func TestUpdateUserEmailResetsVerification(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()
	other := testutil.NewUser(t, gdb)
	u := testutil.NewUser(t, gdb)

	_, _, err := svc.UpdateUser(ctx, u.ID, UserPatch{Email: ptr(other.Email)})
	assert.Equal(t, apperr.KindConflict, apperr.As(err).Kind)

	got, changed, err := svc.UpdateUser(ctx, u.ID, UserPatch{
		FirstName:      ptr("Ana"),
		LastName:       ptr("Lee"),
		ProfilePicture: ptr("/uploads/profile/a.png"),
		Email:          ptr("ana.lee@example.com"),
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, got.IsEmailVerified)
	assert.True(t, got.IsProfileSet)
}

func TestBecomeSellerFlow(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()

	unverified := testutil.NewUser(t, gdb, func(u *models.User) { u.IsEmailVerified = false })
	_, _, err := svc.BecomeSeller(ctx, unverified.ID)
	assert.ErrorIs(t, err, apperr.ErrUnverified)

	u := testutil.NewUser(t, gdb)
	got, profile, err := svc.BecomeSeller(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSeller)
	assert.Equal(t, models.RoleSeller, got.CurrentRole)
	assert.Equal(t, u.ID, profile.UserID)
	assert.False(t, profile.IsProfileComplete)

	_, _, err = svc.BecomeSeller(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadySeller)
}

func TestSwitchRoleFlow(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()

	buyer := testutil.NewUser(t, gdb)
	_, _, err := svc.SwitchRole(ctx, buyer.ID, "seller")
	assert.ErrorIs(t, err, apperr.ErrNotASeller)

	_, _, err = svc.SwitchRole(ctx, buyer.ID, "admin")
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	seller, _ := testutil.NewSeller(t, gdb)
	got, changed, err := svc.SwitchRole(ctx, seller.ID, "buyer")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.RoleBuyer, got.CurrentRole)

	_, changed, err = svc.SwitchRole(ctx, seller.ID, "buyer")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSetupProfileComputesCompleteness(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()
	seller, _ := testutil.NewSeller(t, gdb)

	c, err := svc.Completion(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, c.IsComplete)
	assert.Equal(t, []string{"profile_title", "bio", "educations", "skills", "languages", "portfolio_items"}, c.MissingFields)

	p, err := svc.SetupProfile(ctx, seller.ID, fullProfile())
	require.NoError(t, err)
	assert.True(t, p.IsProfileComplete)
	assert.Len(t, p.Skills, 2)

	// Replacing skills with a single entry drops below the minimum.
	p, err = svc.SetupProfile(ctx, seller.ID, ProfileInput{Skills: &[]LeveledInput{{Name: "Go", Level: "expert"}}})
	require.NoError(t, err)
	assert.False(t, p.IsProfileComplete)
	assert.Len(t, p.Skills, 1)
	assert.Len(t, p.Educations, 1, "absent collections are left untouched")

	c, err = svc.Completion(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"skills"}, c.MissingFields)
}

func TestShortTitleSavesButStaysIncomplete(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()
	seller, _ := testutil.NewSeller(t, gdb)

	in := fullProfile()
	in.ProfileTitle = ptr("Dev!")
	p, err := svc.SetupProfile(ctx, seller.ID, in)
	require.NoError(t, err)
	assert.False(t, p.IsProfileComplete)

	c, err := svc.Completion(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"profile_title"}, c.MissingFields)

	p, err = svc.SetupProfile(ctx, seller.ID, ProfileInput{ProfileTitle: ptr("Developer")})
	require.NoError(t, err)
	assert.True(t, p.IsProfileComplete)
}

func TestSetupProfileRequiresSeller(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	buyer := testutil.NewUser(t, gdb)

	_, err := svc.SetupProfile(context.Background(), buyer.ID, fullProfile())
	assert.ErrorIs(t, err, apperr.ErrNotASeller)
}

func TestDeleteSellerProfile(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()

	seller, profile := testutil.NewSeller(t, gdb)
	cat, _ := testutil.NewCategory(t, gdb, "Design")
	testutil.NewGig(t, gdb, profile, cat)

	u, err := svc.DeleteSellerProfile(ctx, seller.ID)
	require.NoError(t, err)
	assert.False(t, u.IsSeller)
	assert.Equal(t, models.RoleBuyer, u.CurrentRole)

	var gigs int64
	require.NoError(t, gdb.Model(&models.Gig{}).Where("seller_id = ?", profile.ID).Count(&gigs).Error)
	assert.Zero(t, gigs)

	_, err = svc.DeleteSellerProfile(ctx, seller.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.As(err).Kind)
}

func TestDeleteSellerProfileKeepsOrderHistory(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)

	seller, profile := testutil.NewSeller(t, gdb)
	buyer := testutil.NewUser(t, gdb)
	cat, _ := testutil.NewCategory(t, gdb, "Writing")
	gig := testutil.NewGig(t, gdb, profile, cat)
	pkg := testutil.Package(gig, models.PackageBasic)
	order := &models.Order{
		ID: uuid.New(), GigID: &gig.ID, PackageID: &pkg.ID,
		GigTitle: gig.Title, PackageName: pkg.PackageName,
		BuyerID: buyer.ID, SellerID: seller.ID, TotalAmount: decimal.RequireFromString("15.00"),
		Status: models.OrderCompleted,
	}
	require.NoError(t, gdb.Create(order).Error)

	u, err := svc.DeleteSellerProfile(context.Background(), seller.ID)
	require.NoError(t, err)
	assert.False(t, u.IsSeller)
	assert.Equal(t, models.RoleBuyer, u.CurrentRole)

	var reloaded models.User
	require.NoError(t, gdb.First(&reloaded, "id = ?", seller.ID).Error)
	assert.False(t, reloaded.IsSeller)

	var kept models.Order
	require.NoError(t, gdb.First(&kept, "id = ?", order.ID).Error)
	assert.Nil(t, kept.GigID)
	assert.Nil(t, kept.PackageID)
	assert.Equal(t, gig.Title, kept.GigTitle)
	assert.Equal(t, models.OrderCompleted, kept.Status)
	assert.True(t, kept.TotalAmount.Equal(decimal.RequireFromString("15.00")))
}

func TestGoogleLogin(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	svc := NewService(gdb, models.DefaultCompletenessRules, nil)
	ctx := context.Background()

	existing := testutil.NewUser(t, gdb, func(u *models.User) {
		u.Username = "jane"
		u.IsEmailVerified = false
	})

	u, err := svc.GoogleLogin(ctx, GoogleProfile{Email: strings.ToUpper(existing.Email), VerifiedEmail: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, u.ID)
	assert.True(t, u.IsEmailVerified)

	fresh, err := svc.GoogleLogin(ctx, GoogleProfile{Email: "jane@gmail.com", FirstName: "Jane", LastName: "Doe"})
	require.NoError(t, err)
	assert.NotEqual(t, existing.ID, fresh.ID)
	assert.True(t, strings.HasPrefix(fresh.Username, "jane_"), fresh.Username)
	assert.False(t, fresh.IsEmailVerified)
	assert.Equal(t, models.RoleBuyer, fresh.CurrentRole)

	_, err = svc.GoogleLogin(ctx, GoogleProfile{})
	assert.Contains(t, apperr.As(err).Fields, "email")
}
