package businessflow

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errStoreDown = errors.New("store unavailable")

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newMockDB returns a gorm handle over sqlmock for code paths that only open and commit transactions
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

// fakeOrderRepo computes order aggregates over an in-memory slice
type fakeOrderRepo struct {
	orders []models.Order
	err    error
}

func (f *fakeOrderRepo) DistinctUserIDs(ctx context.Context) ([]string, error) {
	return f.userIDs(func(models.Order) bool { return true })
}

func (f *fakeOrderRepo) UserIDsOrderedSince(ctx context.Context, since time.Time) ([]string, error) {
	return f.userIDs(func(o models.Order) bool { return !o.CreatedAt.Before(since) })
}

func (f *fakeOrderRepo) UserIDsWithTotalAtLeast(ctx context.Context, minTotal float64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	totals := map[string]float64{}
	for _, o := range f.orders {
		totals[o.UserID] += o.TotalAmount
	}
	var out []string
	for id, total := range totals {
		if total >= minTotal {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UserIDsWithOrderCountAtLeast(ctx context.Context, minOrders int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := map[string]int{}
	for _, o := range f.orders {
		counts[o.UserID]++
	}
	var out []string
	for id, n := range counts {
		if n >= minOrders {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UserIDsByBillingLocation(ctx context.Context, locations []string) ([]string, error) {
	return f.userIDs(func(o models.Order) bool {
		return slices.Contains(locations, o.BillingState) || slices.Contains(locations, o.BillingCity)
	})
}

func (f *fakeOrderRepo) LatestByUser(ctx context.Context, userID string) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	var latest *models.Order
	for i := range f.orders {
		o := f.orders[i]
		if o.UserID != userID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = &o
		}
	}
	return latest, nil
}

func (f *fakeOrderRepo) StatsByUser(ctx context.Context, userID string) (*models.OrderStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	stats := &models.OrderStats{}
	for _, o := range f.orders {
		if o.UserID == userID {
			stats.TotalOrders++
			stats.TotalSpent += o.TotalAmount
		}
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalSpent / float64(stats.TotalOrders)
	}
	return stats, nil
}

func (f *fakeOrderRepo) userIDs(keep func(models.Order) bool) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, o := range f.orders {
		if keep(o) && !slices.Contains(out, o.UserID) {
			out = append(out, o.UserID)
		}
	}
	return out, nil
}

type fakeContactRepo struct {
	contacts []models.Contact
	err      error
}

func (f *fakeContactRepo) AllUserIDs(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(f.contacts))
	for _, c := range f.contacts {
		out = append(out, c.UserID)
	}
	return out, nil
}

func (f *fakeContactRepo) UserIDsRegisteredBetween(ctx context.Context, userIDs []string, from, to *time.Time) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, c := range f.contacts {
		if !slices.Contains(userIDs, c.UserID) {
			continue
		}
		if from != nil && c.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && c.CreatedAt.After(*to) {
			continue
		}
		out = append(out, c.UserID)
	}
	return out, nil
}

func (f *fakeContactRepo) ByUserIDs(ctx context.Context, userIDs []string) ([]*models.Contact, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Contact
	// reverse order so callers must sort
	for i := len(f.contacts) - 1; i >= 0; i-- {
		c := f.contacts[i]
		if slices.Contains(userIDs, c.UserID) {
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeAddressRepo struct {
	addresses []models.BuyerAddress
	err       error
}

func (f *fakeAddressRepo) UserIDsByLocation(ctx context.Context, locations []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, a := range f.addresses {
		if slices.Contains(locations, a.State) || slices.Contains(locations, a.City) {
			out = append(out, a.UserID)
		}
	}
	return out, nil
}

type fakePreferenceRepo struct {
	prefs []models.CustomerPreference
	err   error
}

func (f *fakePreferenceRepo) OptedInUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, p := range f.prefs {
		if p.MarketingOptIn && slices.Contains(userIDs, p.UserID) {
			out = append(out, p.UserID)
		}
	}
	return out, nil
}

type fakeBusinessRepo struct {
	businesses []models.Business
	err        error
}

func (f *fakeBusinessRepo) OwnerUserIDs(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	for _, b := range f.businesses {
		out = append(out, b.OwnerUserID)
	}
	return out, nil
}

// fakeCampaignRepo keeps campaigns in memory and records status writes
type fakeCampaignRepo struct {
	mu            sync.Mutex
	campaigns     []*models.Campaign
	statusUpdates []models.CampaignStatus
	finalStats    *models.CampaignStatistics
	lookupErr     error
	statsErr      error
}

func (f *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaignRepo) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.UUID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	var out []*models.Campaign
	for _, c := range f.campaigns {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.TargetAudience != nil && c.TargetAudience != *filter.TargetAudience {
			continue
		}
		out = append(out, c)
	}
	if offset >= len(out) {
		return []*models.Campaign{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error {
	f.campaigns = append(f.campaigns, entity)
	return nil
}

func (f *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	f.campaigns = append(f.campaigns, entities...)
	return nil
}

func (f *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	rows, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	n, err := f.Count(ctx, filter)
	return n > 0, err
}

func (f *fakeCampaignRepo) ClaimForDispatch(ctx context.Context, id uint, status models.CampaignStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.ID != id {
			continue
		}
		if c.Status == models.CampaignStatusSending || c.Status == models.CampaignStatusSent {
			return false, nil
		}
		c.Status = status
		f.statusUpdates = append(f.statusUpdates, status)
		return true, nil
	}
	return false, nil
}

func (f *fakeCampaignRepo) UpdateStatistics(ctx context.Context, id uint, status models.CampaignStatus, stats models.CampaignStatistics) error {
	if f.statsErr != nil {
		return f.statsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates = append(f.statusUpdates, status)
	f.finalStats = &stats
	for _, c := range f.campaigns {
		if c.ID == id {
			c.Status = status
			c.TotalRecipients = stats.TotalRecipients
			c.SentCount = stats.SentCount
			c.DeliveredCount = stats.DeliveredCount
			c.FailedCount = stats.FailedCount
			c.SentAt = &stats.SentAt
		}
	}
	return nil
}

// fakeLogRepo stores campaign logs in insertion order
type fakeLogRepo struct {
	logs    []*models.CampaignLog
	saveErr error
}

func (f *fakeLogRepo) ByID(ctx context.Context, id uint) (*models.CampaignLog, error) {
	for _, l := range f.logs {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeLogRepo) ByFilter(ctx context.Context, filter models.CampaignLogFilter, orderBy string, limit, offset int) ([]*models.CampaignLog, error) {
	var out []*models.CampaignLog
	for _, l := range f.logs {
		if filter.CampaignID != nil && l.CampaignID != *filter.CampaignID {
			continue
		}
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}
		out = append(out, l)
	}
	if offset >= len(out) {
		return []*models.CampaignLog{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLogRepo) Save(ctx context.Context, entity *models.CampaignLog) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	entity.ID = uint(len(f.logs) + 1)
	if entity.UUID == uuid.Nil {
		entity.UUID = uuid.New()
	}
	f.logs = append(f.logs, entity)
	return nil
}

func (f *fakeLogRepo) SaveBatch(ctx context.Context, entities []*models.CampaignLog) error {
	for _, e := range entities {
		if err := f.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLogRepo) Count(ctx context.Context, filter models.CampaignLogFilter) (int64, error) {
	rows, _ := f.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeLogRepo) Exists(ctx context.Context, filter models.CampaignLogFilter) (bool, error) {
	n, err := f.Count(ctx, filter)
	return n > 0, err
}

func (f *fakeLogRepo) CountByStatus(ctx context.Context, campaignID uint) (map[models.CampaignLogStatus]int64, error) {
	out := map[models.CampaignLogStatus]int64{}
	for _, l := range f.logs {
		if l.CampaignID == campaignID {
			out[l.Status]++
		}
	}
	return out, nil
}

// mockTransport is a testify mock of the WhatsApp transport
type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendMarketingMessage(ctx context.Context, phone, name, body string) (bool, error) {
	args := m.Called(ctx, phone, name, body)
	return args.Bool(0), args.Error(1)
}
