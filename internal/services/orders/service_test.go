package orders

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/testutil"
)

type memStore struct{ saved, deleted []string }

func (m *memStore) Save(_ context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	url := "/uploads/" + dir + "/" + fh.Filename
	m.saved = append(m.saved, url)
	return url, nil
}

func (m *memStore) Delete(_ context.Context, url string) error {
	m.deleted = append(m.deleted, url)
	return nil
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	store  *memStore
	seller *models.User
	buyer  *models.User
	gig    *models.Gig
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.SetupTestDB(t)
	store := &memStore{}
	seller, profile := testutil.NewSeller(t, gdb)
	cat, _ := testutil.NewCategory(t, gdb, "Graphics & Design")
	return &fixture{
		db:     gdb,
		svc:    NewService(gdb, earnings.NewService(gdb), nil, store),
		store:  store,
		seller: seller,
		buyer:  testutil.NewUser(t, gdb),
		gig:    testutil.NewGig(t, gdb, profile, cat),
	}
}

func (f *fixture) place(t *testing.T) *models.Order {
	t.Helper()
	o, err := f.svc.Create(context.Background(), f.buyer.ID, CreateInput{
		GigID:     f.gig.ID,
		PackageID: testutil.Package(f.gig, models.PackageStandard).ID,
	})
	require.NoError(t, err)
	return o
}

func fileHeader(t *testing.T, name string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func TestCreateDerivesSellerAndTotal(t *testing.T) {
	f := setup(t)
	o := f.place(t)

	assert.Equal(t, models.OrderPlaced, o.Status)
	assert.Equal(t, f.seller.ID, o.SellerID)
	assert.Equal(t, f.buyer.ID, o.BuyerID)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.TotalAmount))
	assert.Equal(t, f.gig.Title, o.GigTitle)
	assert.Equal(t, models.PackageStandard, o.PackageName)
	require.NotNil(t, o.GigID)
	assert.Equal(t, f.gig.ID, *o.GigID)

	// A second order on the same package is allowed.
	f.place(t)
}

func TestCreateRejectsForeignPackage(t *testing.T) {
	f := setup(t)
	_, profile := testutil.NewSeller(t, f.db)
	cat, _ := testutil.NewCategory(t, f.db, "Music")
	other := testutil.NewGig(t, f.db, profile, cat)

	_, err := f.svc.Create(context.Background(), f.buyer.ID, CreateInput{
		GigID:     f.gig.ID,
		PackageID: testutil.Package(other, models.PackageBasic).ID,
	})
	e := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Contains(t, e.Fields, "package_id")
}

func TestCreateRejectsOwnGigAndMissingGig(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.seller.ID, CreateInput{GigID: f.gig.ID, PackageID: f.gig.Packages[0].ID})
	assert.Equal(t, apperr.KindPermission, apperr.As(err).Kind)

	_, err = f.svc.Create(ctx, f.buyer.ID, CreateInput{GigID: 999999, PackageID: 1})
	assert.Equal(t, apperr.KindNotFound, apperr.As(err).Kind)
}

func TestVisibilityIsLimitedToParties(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t)
	stranger := testutil.NewUser(t, f.db)

	_, err := f.svc.Get(ctx, stranger.ID, o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.As(err).Kind)

	page, err := f.svc.List(ctx, stranger.ID, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = f.svc.List(ctx, f.seller.ID, ListFilter{As: "seller"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Meta.Total)

	page, err = f.svc.List(ctx, f.seller.ID, ListFilter{As: "buyer"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	_, err = f.svc.List(ctx, f.buyer.ID, ListFilter{Status: "shipped"})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)
}

func TestLifecycleToCompletionCreditsSeller(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Transition(ctx, f.buyer.ID, o.ID, models.OrderAccepted)
	assert.Equal(t, apperr.KindPermission, apperr.As(err).Kind, "buyer cannot accept")

	_, err = f.svc.Transition(ctx, f.seller.ID, o.ID, models.OrderCompleted)
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind, "placed cannot jump to completed")

	for _, step := range []struct {
		actor *models.User
		to    models.OrderStatus
	}{
		{f.seller, models.OrderAccepted},
		{f.seller, models.OrderInProgress},
		{f.buyer, models.OrderCompleted},
	} {
		got, err := f.svc.Transition(ctx, step.actor.ID, o.ID, step.to)
		require.NoError(t, err)
		assert.Equal(t, step.to, got.Status)
	}

	var p models.SellerProfile
	require.NoError(t, f.db.Where("user_id = ?", f.seller.ID).First(&p).Error)
	assert.True(t, decimal.RequireFromString("40.00").Equal(p.Balance))

	_, err = f.svc.Transition(ctx, f.seller.ID, o.ID, models.OrderAccepted)
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind, "completed is terminal")
}

func TestCancelIsAtomicWithStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Cancel(ctx, f.buyer.ID, o.ID, CancelInput{Reason: "too short"})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	rec, err := f.svc.Cancel(ctx, f.seller.ID, o.ID, CancelInput{
		Reason:    "Buyer requirements are out of scope for this gig",
		IsDispute: true,
	})
	require.NoError(t, err)
	assert.True(t, rec.IsDispute)

	got, err := f.svc.Get(ctx, f.buyer.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, got.Status)
	assert.Len(t, got.Cancellations, 1)

	_, err = f.svc.Cancel(ctx, f.buyer.ID, o.ID, CancelInput{Reason: strings.Repeat("x", 25)})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind, "cancelled is terminal")
}

func TestMilestonesAndAttachments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.AddMilestone(ctx, f.buyer.ID, o.ID, MilestoneInput{Title: "Go"})
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	m, err := f.svc.AddMilestone(ctx, f.buyer.ID, o.ID, MilestoneInput{Title: "First draft"})
	require.NoError(t, err)

	_, err = f.svc.SetMilestoneCompleted(ctx, f.buyer.ID, o.ID, m.ID, true)
	assert.Equal(t, apperr.KindPermission, apperr.As(err).Kind)

	m, err = f.svc.SetMilestoneCompleted(ctx, f.seller.ID, o.ID, m.ID, true)
	require.NoError(t, err)
	assert.True(t, m.IsCompleted)

	_, err = f.svc.AddAttachment(ctx, f.buyer.ID, o.ID, fileHeader(t, "brief.exe", []byte("MZ")))
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	a, err := f.svc.AddAttachment(ctx, f.buyer.ID, o.ID, fileHeader(t, "brief.pdf", []byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.Equal(t, "brief.pdf", a.FileName)
	assert.Len(t, f.store.saved, 1)

	list, err := f.svc.Attachments(ctx, f.seller.ID, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Milestones(ctx, uuid.New(), o.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.As(err).Kind)
}

func TestRateOnlyOnceAfterCompletion(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o := f.place(t)

	_, err := f.svc.Rate(ctx, f.buyer.ID, o.ID, 5, "")
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind, "not completed yet")

	require.NoError(t, f.db.Model(o).Update("status", models.OrderCompleted).Error)

	_, err = f.svc.Rate(ctx, f.seller.ID, o.ID, 5, "")
	assert.Equal(t, apperr.KindPermission, apperr.As(err).Kind)

	_, err = f.svc.Rate(ctx, f.buyer.ID, o.ID, 6, "")
	assert.Equal(t, apperr.KindValidation, apperr.As(err).Kind)

	r, err := f.svc.Rate(ctx, f.buyer.ID, o.ID, 4, "Great communication throughout")
	require.NoError(t, err)
	assert.Equal(t, f.seller.ID, r.SellerID)

	_, err = f.svc.Rate(ctx, f.buyer.ID, o.ID, 5, "")
	assert.ErrorIs(t, err, apperr.ErrDuplicateRating)

	ratings, err := f.svc.SellerRatings(ctx, f.seller.ID, 10)
	require.NoError(t, err)
	assert.Len(t, ratings, 1)
}
