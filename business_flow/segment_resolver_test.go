package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type audienceFixture struct {
	orders     *fakeOrderRepo
	contacts   *fakeContactRepo
	addresses  *fakeAddressRepo
	prefs      *fakePreferenceRepo
	businesses *fakeBusinessRepo
}

// newAudienceFixture builds a small storefront:
//
//	u1 Asha   3 orders, 12500 total, latest in Pune, opted in
//	u2 (none) 1 order, 7000 in Mumbai, opted in
//	u3 Ravi   no orders, address in Pune, opted in
//	u4 Meera  1 recent order, short phone, opted out
//	u5 Kiran  seller, no preference row
//	u6 (none) seller, no preference row
func newAudienceFixture() *audienceFixture {
	return &audienceFixture{
		orders: &fakeOrderRepo{orders: []models.Order{
			{ID: 1, UserID: "u1", TotalAmount: 2500, BillingCity: "Nagpur", BillingState: "Maharashtra", CreatedAt: day(2025, 11, 1)},
			{ID: 2, UserID: "u1", TotalAmount: 4000, BillingCity: "Nagpur", BillingState: "Maharashtra", CreatedAt: day(2025, 12, 1)},
			{ID: 3, UserID: "u1", TotalAmount: 6000, BillingCity: "Pune", BillingState: "Maharashtra", ProductTitles: pq.StringArray{"Silk Saree", "Cotton Kurta", "Dupatta"}, CreatedAt: day(2026, 3, 10)},
			{ID: 4, UserID: "u2", TotalAmount: 7000, BillingCity: "Mumbai", BillingState: "Maharashtra", ProductTitles: pq.StringArray{"Brass Lamp"}, CreatedAt: day(2025, 10, 1)},
			{ID: 5, UserID: "u4", TotalAmount: 1000, BillingCity: "Delhi", BillingState: "Delhi", CreatedAt: day(2026, 3, 1)},
		}},
		contacts: &fakeContactRepo{contacts: []models.Contact{
			{ID: 1, UserID: "u1", Name: "Asha", Phone: "9998887771", Email: "asha@example.com", CreatedAt: day(2025, 1, 10)},
			{ID: 2, UserID: "u2", Name: "", Phone: "9998887772", CreatedAt: day(2025, 6, 1)},
			{ID: 3, UserID: "u3", Name: "Ravi", Phone: "9998887773", CreatedAt: day(2026, 1, 1)},
			{ID: 4, UserID: "u4", Name: "Meera", Phone: "12345", CreatedAt: day(2026, 2, 1)},
			{ID: 5, UserID: "u5", Name: "Kiran", Phone: "9998887775", CreatedAt: day(2024, 5, 5)},
			{ID: 6, UserID: "u6", Name: "  ", Phone: "9998887776", CreatedAt: day(2024, 6, 6)},
		}},
		addresses: &fakeAddressRepo{addresses: []models.BuyerAddress{
			{ID: 1, UserID: "u3", City: "Pune", State: "Maharashtra"},
		}},
		prefs: &fakePreferenceRepo{prefs: []models.CustomerPreference{
			{UserID: "u1", MarketingOptIn: true},
			{UserID: "u2", MarketingOptIn: true},
			{UserID: "u3", MarketingOptIn: true},
			{UserID: "u4", MarketingOptIn: false},
		}},
		businesses: &fakeBusinessRepo{businesses: []models.Business{
			{ID: 1, OwnerUserID: "u5", Name: "Kiran Handlooms"},
			{ID: 2, OwnerUserID: "u6", Name: "Unnamed Crafts"},
			{ID: 3, OwnerUserID: "u-ghost", Name: "No Contact Co"},
		}},
	}
}

func (fx *audienceFixture) resolver() *SegmentResolverImpl {
	r := NewSegmentResolver(fx.orders, fx.contacts, fx.addresses, fx.prefs, fx.businesses, config.CampaignConfig{})
	r.now = func() time.Time { return testNow }
	return r
}

func userIDsOf(recipients []models.Recipient) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, r.UserID)
	}
	return out
}

func customersCampaign(segment models.CustomerSegment) *models.Campaign {
	return &models.Campaign{TargetAudience: models.TargetAudienceCustomers, CustomerSegment: segment}
}

func TestSegmentResolver_CustomerBuckets(t *testing.T) {
	tests := []struct {
		name    string
		segment models.CustomerSegment
		want    []string
	}{
		{"default bucket is has_orders", models.CustomerSegment{}, []string{"u1", "u2"}},
		{"unknown bucket falls back to has_orders", models.CustomerSegment{OrderHistory: "vip"}, []string{"u1", "u2"}},
		{"no_orders is contacts minus buyers", models.CustomerSegment{OrderHistory: models.OrderHistoryNoOrders}, []string{"u3"}},
		{"recent_orders uses 30 day window", models.CustomerSegment{OrderHistory: models.OrderHistoryRecentOrders}, []string{"u1"}},
		{"high_value sums order totals", models.CustomerSegment{OrderHistory: models.OrderHistoryHighValue}, []string{"u1", "u2"}},
		{"frequent_buyers counts orders", models.CustomerSegment{OrderHistory: models.OrderHistoryFrequentBuyers}, []string{"u1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newAudienceFixture().resolver().Resolve(context.Background(), customersCampaign(tt.segment))
			require.NoError(t, err)
			assert.Equal(t, tt.want, userIDsOf(got))
		})
	}
}

func TestSegmentResolver_Location(t *testing.T) {
	t.Run("billing and address sources are unioned", func(t *testing.T) {
		fx := newAudienceFixture()
		fx.prefs.prefs = append(fx.prefs.prefs, models.CustomerPreference{UserID: "u5", MarketingOptIn: true})

		// base {u3, u5, u6}; Pune matches u1 by billing and u3 by address
		got, err := fx.resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{
			OrderHistory: models.OrderHistoryNoOrders,
			Location:     []string{"Pune"},
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"u3"}, userIDsOf(got))
	})

	t.Run("state matches billing state", func(t *testing.T) {
		got, err := newAudienceFixture().resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{
			Location: []string{"Maharashtra"},
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, userIDsOf(got))
	})

	t.Run("city narrows buyers", func(t *testing.T) {
		got, err := newAudienceFixture().resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{
			Location: []string{"Mumbai", " "},
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"u2"}, userIDsOf(got))
	})

	t.Run("blank locations do not filter", func(t *testing.T) {
		got, err := newAudienceFixture().resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{
			Location: []string{"", "  "},
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, userIDsOf(got))
	})
}

func TestSegmentResolver_RegistrationDate(t *testing.T) {
	from := day(2025, 6, 1)
	to := day(2026, 1, 1)

	tests := []struct {
		name string
		rng  *models.DateRange
		want []string
	}{
		{"inclusive bounds", &models.DateRange{From: &from, To: &to}, []string{"u2"}},
		{"open start", &models.DateRange{To: &from}, []string{"u1", "u2"}},
		{"open end", &models.DateRange{From: &to}, []string{}},
		{"empty range ignored", &models.DateRange{}, []string{"u1", "u2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newAudienceFixture().resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{
				RegistrationDate: tt.rng,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, userIDsOf(got))
		})
	}
}

func TestSegmentResolver_OptInRequired(t *testing.T) {
	fx := newAudienceFixture()
	fx.prefs.prefs = nil

	got, err := fx.resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{}))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSegmentResolver_AllMode(t *testing.T) {
	got, err := newAudienceFixture().resolver().Resolve(context.Background(), &models.Campaign{TargetAudience: models.TargetAudienceAll})
	require.NoError(t, err)

	// no preference filtering, ordered by contact id
	require.Equal(t, []string{"u1", "u2", "u4"}, userIDsOf(got))
	assert.Equal(t, "Asha", got[0].Name)
	assert.Equal(t, "asha@example.com", got[0].Email)
	assert.Equal(t, "Customer", got[1].Name)
	assert.Equal(t, "12345", got[2].Phone)
}

func TestSegmentResolver_SellersMode(t *testing.T) {
	got, err := newAudienceFixture().resolver().Resolve(context.Background(), &models.Campaign{TargetAudience: models.TargetAudienceSellers})
	require.NoError(t, err)

	require.Equal(t, []string{"u5", "u6"}, userIDsOf(got))
	assert.Equal(t, "Kiran", got[0].Name)
	assert.Equal(t, "Seller", got[1].Name)
}

func TestSegmentResolver_Errors(t *testing.T) {
	t.Run("unknown target audience", func(t *testing.T) {
		_, err := newAudienceFixture().resolver().Resolve(context.Background(), &models.Campaign{TargetAudience: "vendors"})
		require.Error(t, err)
		assert.True(t, IsInvalidTargetAudience(err))
		assert.False(t, IsSegmentResolutionFailed(err))
	})

	failures := map[string]func(fx *audienceFixture){
		"orders":      func(fx *audienceFixture) { fx.orders.err = errStoreDown },
		"contacts":    func(fx *audienceFixture) { fx.contacts.err = errStoreDown },
		"preferences": func(fx *audienceFixture) { fx.prefs.err = errStoreDown },
	}
	for name, breakRepo := range failures {
		t.Run(name+" failure aborts resolution", func(t *testing.T) {
			fx := newAudienceFixture()
			breakRepo(fx)

			got, err := fx.resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{}))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, IsSegmentResolutionFailed(err))
			assert.ErrorIs(t, err, errStoreDown)
		})
	}

	t.Run("address failure with location", func(t *testing.T) {
		fx := newAudienceFixture()
		fx.addresses.err = errStoreDown

		_, err := fx.resolver().Resolve(context.Background(), customersCampaign(models.CustomerSegment{Location: []string{"Pune"}}))
		assert.True(t, IsSegmentResolutionFailed(err))
	})
}

func TestUserIDSet(t *testing.T) {
	a := newUserIDSet([]string{"a", "b", "c", "", "a"})
	b := newUserIDSet([]string{"b", "c", "d"})

	assert.Equal(t, []string{"a", "b", "c"}, a.sorted())
	assert.Equal(t, []string{"b", "c"}, a.intersect(b).sorted())
	assert.Equal(t, []string{"a", "b", "c", "d"}, a.union(b).sorted())
	assert.Equal(t, []string{"a"}, a.minus(b).sorted())
}
