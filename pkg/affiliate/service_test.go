package affiliate

import (
	"context"
	"regexp"
	"sync"
	"testing"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/jordanlanch/affiliatebridge/pkg/database/dbtest"
	"github.com/jordanlanch/affiliatebridge/pkg/domain"
	"github.com/jordanlanch/affiliatebridge/pkg/models"
	"github.com/jordanlanch/affiliatebridge/pkg/offers"
	"github.com/jordanlanch/affiliatebridge/pkg/testdata"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db      *database.Client
	service *Service
	gen     *testdata.Generator
	company *models.Account
	partner *models.Account
	offer   *models.Offer
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db := dbtest.Open(t)
	gen := testdata.NewGenerator(db, 1)

	company, err := gen.Company(ctx)
	require.NoError(t, err)
	partner, err := gen.Partner(ctx)
	require.NoError(t, err)
	offer, err := gen.OfferWithSplit(ctx, company.ID, 100000, 15, 20)
	require.NoError(t, err)

	return &fixture{
		db:      db,
		service: NewService(db, gen.Accounts, Config{PublicBaseURL: "https://go.example.com/", FrontendURL: "https://app.example.com"}),
		gen:     gen,
		company: company,
		partner: partner,
		offer:   offer,
	}
}

func (f *fixture) count(t *testing.T, table string) int {
	n, err := f.db.Count(context.Background(), f.db.DB(), f.db.Select(entsql.Count("*")).From(entsql.Table(table)))
	require.NoError(t, err)
	return n
}

var trackingCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{10}$`)

func TestGenerateTrackingCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := generateTrackingCode()
		require.NoError(t, err)
		assert.Regexp(t, trackingCodePattern, code)
		seen[code] = true
	}
	assert.Len(t, seen, 200)
}

func TestCreateLink(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("Success - First call creates", func(t *testing.T) {
		link, created, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)

		require.NoError(t, err)
		assert.True(t, created)
		assert.Regexp(t, trackingCodePattern, link.TrackingCode)
		assert.Equal(t, "https://go.example.com/track/"+link.TrackingCode, link.TrackingURL)
		assert.True(t, link.IsActive)
	})

	t.Run("Second call returns the same link", func(t *testing.T) {
		first, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
		require.NoError(t, err)
		second, created, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
		require.NoError(t, err)

		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.TrackingCode, second.TrackingCode)
		assert.Equal(t, 1, f.count(t, database.TableAffiliateLinks))
	})

	t.Run("Failure - Unknown offer", func(t *testing.T) {
		_, _, err := f.service.CreateLink(ctx, f.partner.ID, 999)
		assert.ErrorIs(t, err, domain.ErrOfferNotFound)
	})

	t.Run("Failure - Inactive offer", func(t *testing.T) {
		offer, err := f.gen.Offer(ctx, f.company.ID)
		require.NoError(t, err)
		inactive := false
		_, err = f.gen.Offers.Update(ctx, f.company.ID, offer.ID, offers.UpdateInput{IsActive: &inactive})
		require.NoError(t, err)

		_, _, err = f.service.CreateLink(ctx, f.partner.ID, offer.ID)
		assert.ErrorIs(t, err, domain.ErrOfferInactive)
	})

	t.Run("Existing link survives deactivation", func(t *testing.T) {
		offer, err := f.gen.Offer(ctx, f.company.ID)
		require.NoError(t, err)
		first, created, err := f.service.CreateLink(ctx, f.partner.ID, offer.ID)
		require.NoError(t, err)
		require.True(t, created)

		inactive := false
		_, err = f.gen.Offers.Update(ctx, f.company.ID, offer.ID, offers.UpdateInput{IsActive: &inactive})
		require.NoError(t, err)

		again, created, err := f.service.CreateLink(ctx, f.partner.ID, offer.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.TrackingCode, again.TrackingCode)
	})
}

func TestCreateLink_ConcurrentCallsConverge(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	const workers = 8
	codes := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
			if assert.NoError(t, err) {
				codes[i] = link.TrackingCode
			}
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, codes[0], code)
	}
	assert.Equal(t, 1, f.count(t, database.TableAffiliateLinks))
}

func TestListLinks(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	other, err := f.gen.Offer(ctx, f.company.ID)
	require.NoError(t, err)
	first, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
	require.NoError(t, err)
	second, _, err := f.service.CreateLink(ctx, f.partner.ID, other.ID)
	require.NoError(t, err)

	links, err := f.service.ListLinks(ctx, f.partner.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, second.ID, links[0].ID)
	assert.Equal(t, first.ID, links[1].ID)
	assert.NotEmpty(t, links[0].TrackingURL)

	none, err := f.service.ListLinks(ctx, f.company.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTrackClick(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	link, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
	require.NoError(t, err)

	t.Run("Success - Redirects to product", func(t *testing.T) {
		target, err := f.service.TrackClick(ctx, link.TrackingCode, models.ClickData{
			IPAddress:   "192.168.1.1",
			UserAgent:   "Mozilla/5.0",
			Referrer:    "https://google.com",
			UTMSource:   "blog",
			UTMMedium:   "post",
			UTMCampaign: "launch",
		})

		require.NoError(t, err)
		assert.Equal(t, *f.offer.ProductURL, target)
		assert.Equal(t, 1, f.count(t, database.TableClicks))

		query, args := f.db.Select("ip_address", "utm_campaign", "partner_id").From(entsql.Table(database.TableClicks)).Query()
		var ip, campaign string
		var partnerID int
		require.NoError(t, f.db.DB().QueryRowContext(ctx, query, args...).Scan(&ip, &campaign, &partnerID))
		assert.Equal(t, "192.168.1.1", ip)
		assert.Equal(t, "launch", campaign)
		assert.Equal(t, f.partner.ID, partnerID)
	})

	t.Run("Falls back to the offers page", func(t *testing.T) {
		blank := ""
		_, err := f.gen.Offers.Update(ctx, f.company.ID, f.offer.ID, offers.UpdateInput{ProductURL: &blank})
		require.NoError(t, err)

		target, err := f.service.TrackClick(ctx, link.TrackingCode, models.ClickData{})
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com/offers", target)
	})

	t.Run("Failure - Unknown code", func(t *testing.T) {
		_, err := f.service.TrackClick(ctx, "nope", models.ClickData{})
		assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	})
}

func TestRecordConversion(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	link, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
	require.NoError(t, err)

	t.Run("Success - Split frozen at creation", func(t *testing.T) {
		conv, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(100000), "ORDER-1")

		require.NoError(t, err)
		assert.Equal(t, models.ConversionPending, conv.Status)
		assert.True(t, conv.TotalCommission.Equal(decimal.NewFromInt(15000)))
		assert.True(t, conv.PlatformFee.Equal(decimal.NewFromInt(3000)))
		assert.True(t, conv.CommissionAmount.Equal(decimal.NewFromInt(12000)))
		assert.Equal(t, f.partner.ID, conv.PartnerID)

		// Later offer edits leave the stored split alone.
		commission := decimal.NewFromInt(50)
		_, err = f.gen.Offers.Update(ctx, f.company.ID, f.offer.ID, offers.UpdateInput{CommissionPercent: &commission})
		require.NoError(t, err)

		stored, err := GetConversion(ctx, f.db, f.db.DB(), conv.ID)
		require.NoError(t, err)
		assert.True(t, stored.CommissionAmount.Equal(decimal.NewFromInt(12000)), stored.CommissionAmount.String())
		require.NotNil(t, stored.OrderID)
		assert.Equal(t, "ORDER-1", *stored.OrderID)
	})

	t.Run("Failure - Duplicate order", func(t *testing.T) {
		_, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(10), "ORDER-1")
		assert.ErrorIs(t, err, domain.ErrDuplicateOrder)
	})

	t.Run("Orders without id never collide", func(t *testing.T) {
		_, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(10), "")
		require.NoError(t, err)
		_, err = f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(10), "")
		require.NoError(t, err)
	})

	t.Run("Failure - Non-positive amount", func(t *testing.T) {
		_, err := f.service.RecordConversion(ctx, link.ID, decimal.Zero, "")
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("Failure - Unknown link", func(t *testing.T) {
		_, err := f.service.RecordConversion(ctx, 999, decimal.NewFromInt(10), "")
		assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	})
}

func TestReviewConversion(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	link, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
	require.NoError(t, err)
	approved, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(100000), "")
	require.NoError(t, err)
	rejected, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(100000), "")
	require.NoError(t, err)

	otherCompany, err := f.gen.Company(ctx)
	require.NoError(t, err)

	t.Run("Failure - Not the offer owner", func(t *testing.T) {
		_, err := f.service.ApproveConversion(ctx, otherCompany.ID, approved.ID)
		assert.ErrorIs(t, err, domain.ErrNotOfferOwner)
	})

	t.Run("Approve credits the partner", func(t *testing.T) {
		conv, err := f.service.ApproveConversion(ctx, f.company.ID, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConversionApproved, conv.Status)
		assert.NotNil(t, conv.ApprovedAt)

		balance, err := f.gen.Accounts.Balance(ctx, f.db.DB(), f.partner.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(12000)), balance.String())
	})

	t.Run("Failure - Approving twice", func(t *testing.T) {
		_, err := f.service.ApproveConversion(ctx, f.company.ID, approved.ID)
		assert.ErrorIs(t, err, domain.ErrConversionNotPending)

		balance, err := f.gen.Accounts.Balance(ctx, f.db.DB(), f.partner.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(12000)), "balance credited once")
	})

	t.Run("Reject leaves the balance alone", func(t *testing.T) {
		conv, err := f.service.RejectConversion(ctx, f.company.ID, rejected.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConversionRejected, conv.Status)

		_, err = f.service.ApproveConversion(ctx, f.company.ID, rejected.ID)
		assert.ErrorIs(t, err, domain.ErrConversionNotPending)
	})

	t.Run("Failure - Unknown conversion", func(t *testing.T) {
		_, err := f.service.ApproveConversion(ctx, f.company.ID, 999)
		assert.ErrorIs(t, err, domain.ErrConversionNotFound)
	})
}

func TestListConversions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	link, _, err := f.service.CreateLink(ctx, f.partner.ID, f.offer.ID)
	require.NoError(t, err)
	first, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(10), "")
	require.NoError(t, err)
	second, err := f.service.RecordConversion(ctx, link.ID, decimal.NewFromInt(20), "")
	require.NoError(t, err)

	outsider, err := f.gen.Company(ctx)
	require.NoError(t, err)
	stranger, err := f.gen.Partner(ctx)
	require.NoError(t, err)

	forPartner, err := f.service.ListConversions(ctx, f.partner)
	require.NoError(t, err)
	require.Len(t, forPartner, 2)
	assert.Equal(t, second.ID, forPartner[0].ID)
	assert.Equal(t, first.ID, forPartner[1].ID)

	forCompany, err := f.service.ListConversions(ctx, f.company)
	require.NoError(t, err)
	assert.Len(t, forCompany, 2)

	for _, acc := range []*models.Account{outsider, stranger} {
		list, err := f.service.ListConversions(ctx, acc)
		require.NoError(t, err)
		assert.Empty(t, list)
	}
}
