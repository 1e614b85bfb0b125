package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/app/services"
	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dispatchCampaignUUID = uuid.MustParse("5a0c1a0e-7d3b-4f0e-9c55-2f5e8f3f7a10")

type dispatchHarness struct {
	fixture   *audienceFixture
	campaign  *models.Campaign
	campaigns *fakeCampaignRepo
	logs      *fakeLogRepo
	transport *mockTransport
	cache     *services.MemoryAudienceCache
	sql       sqlmock.Sqlmock
	db        *gorm.DB
	cfg       config.CampaignConfig
	flow      CampaignDispatchFlow
}

func newDispatchHarness(t *testing.T, campaign *models.Campaign, cfg config.CampaignConfig, tweak func(*audienceFixture)) *dispatchHarness {
	t.Helper()
	fx := newAudienceFixture()
	if tweak != nil {
		tweak(fx)
	}
	db, sqlMock := newMockDB(t)

	h := &dispatchHarness{
		fixture:   fx,
		campaign:  campaign,
		campaigns: &fakeCampaignRepo{campaigns: []*models.Campaign{campaign}},
		logs:      &fakeLogRepo{},
		transport: &mockTransport{},
		cache:     services.NewMemoryAudienceCache(0, 0),
		sql:       sqlMock,
		db:        db,
		cfg:       cfg,
	}
	h.useResolver(fx.resolver())
	return h
}

// useResolver rebuilds the flow around resolver
func (h *dispatchHarness) useResolver(resolver SegmentResolver) {
	h.flow = NewCampaignDispatchFlow(
		h.campaigns,
		h.logs,
		resolver,
		NewRecipientEnricher(h.fixture.orders, h.cfg, discardLogger()),
		NewMessageRenderer("₹", "en"),
		h.transport,
		h.cache,
		h.db,
		h.cfg,
		discardLogger(),
	)
}

func newDispatchCampaign(audience models.TargetAudience, message string) *models.Campaign {
	return &models.Campaign{
		ID:             7,
		UUID:           dispatchCampaignUUID,
		Title:          "Diwali sale",
		TargetAudience: audience,
		Message:        message,
		Status:         models.CampaignStatusDraft,
	}
}

func (h *dispatchHarness) dispatch(ctx context.Context) (*dto.DispatchCampaignResponse, error) {
	return h.flow.DispatchCampaign(ctx, dispatchCampaignUUID.String(), &ClientMetadata{CallerID: "admin-1"})
}

func TestDispatchCampaign_CustomersWithPartialFailure(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceCustomers, "Hi {name}, {tier} member! Last order {lastOrderAmount}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)

	h.transport.On("SendMarketingMessage", mock.Anything, "9998887771", "Asha", "Hi Asha, Premium member! Last order ₹6,000").
		Return(true, nil).Once()
	h.transport.On("SendMarketingMessage", mock.Anything, "9998887772", "Customer", "Hi Customer, Gold member! Last order ₹7,000").
		Return(false, nil).Once()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	resp, err := h.dispatch(context.Background())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, dispatchCampaignUUID.String(), resp.CampaignID)
	assert.Equal(t, 2, resp.TotalRecipients)
	assert.Equal(t, 1, resp.SentCount)
	assert.Equal(t, 1, resp.DeliveredCount)
	assert.Equal(t, 1, resp.FailedCount)
	assert.Equal(t, "customers", resp.SegmentationCriteria.TargetAudience)

	require.Len(t, h.logs.logs, 2)
	assert.Equal(t, models.CampaignLogStatusSent, h.logs.logs[0].Status)
	assert.NotNil(t, h.logs.logs[0].SentAt)
	assert.Nil(t, h.logs.logs[0].ErrorMessage)
	assert.Equal(t, uint(7), h.logs.logs[0].CampaignID)
	assert.Equal(t, "Hi Asha, Premium member! Last order ₹6,000", h.logs.logs[0].Message)
	assert.Equal(t, models.CampaignLogStatusFailed, h.logs.logs[1].Status)
	require.NotNil(t, h.logs.logs[1].ErrorMessage)
	assert.Equal(t, "transport reported failure", *h.logs.logs[1].ErrorMessage)

	assert.Equal(t, []models.CampaignStatus{models.CampaignStatusSending, models.CampaignStatusSent}, h.campaigns.statusUpdates)
	require.NotNil(t, h.campaigns.finalStats)
	assert.Equal(t, resp.SentCount+resp.FailedCount, h.campaigns.finalStats.TotalRecipients)
	assert.Equal(t, models.CampaignStatusSent, campaign.Status)
	assert.NotNil(t, campaign.SentAt)

	h.transport.AssertExpectations(t)
	assert.NoError(t, h.sql.ExpectationsWereMet())
}

func TestDispatchCampaign_TransportErrorIsRecorded(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hello {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)

	h.transport.On("SendMarketingMessage", mock.Anything, "9998887775", "Kiran", "Hello Kiran").
		Return(false, errors.New("WhatsApp API error 429 (code 131056): rate limit hit")).Once()
	h.transport.On("SendMarketingMessage", mock.Anything, "9998887776", "Seller", "Hello Seller").
		Return(true, nil).Once()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	resp, err := h.dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.SentCount)
	assert.Equal(t, 1, resp.FailedCount)

	require.Len(t, h.logs.logs, 2)
	require.NotNil(t, h.logs.logs[0].ErrorMessage)
	assert.Contains(t, *h.logs.logs[0].ErrorMessage, "rate limit hit")
	h.transport.AssertExpectations(t)
}

func TestDispatchCampaign_SellersAreNotEnriched(t *testing.T) {
	fx := func(fx *audienceFixture) {
		// seller u5 also has a large order
		fx.orders.orders = append(fx.orders.orders, models.Order{ID: 99, UserID: "u5", TotalAmount: 50000, CreatedAt: day(2026, 3, 1)})
	}
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name} {tier}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, fx)

	h.transport.On("SendMarketingMessage", mock.Anything, "9998887775", "Kiran", "Hi Kiran {tier}").Return(true, nil).Once()
	h.transport.On("SendMarketingMessage", mock.Anything, "9998887776", "Seller", "Hi Seller {tier}").Return(true, nil).Once()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	resp, err := h.dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SentCount)
	h.transport.AssertExpectations(t)
}

func TestDispatchCampaign_ShortPhonesAreSkipped(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceAll, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)

	// u4 has a 5 digit phone and is never attempted
	h.transport.On("SendMarketingMessage", mock.Anything, "9998887771", "Asha", "Hi Asha").Return(true, nil).Once()
	h.transport.On("SendMarketingMessage", mock.Anything, "9998887772", "Customer", "Hi Customer").Return(true, nil).Once()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	resp, err := h.dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalRecipients)
	assert.Len(t, h.logs.logs, 2)
	h.transport.AssertExpectations(t)
	h.transport.AssertNotCalled(t, "SendMarketingMessage", mock.Anything, "12345", mock.Anything, mock.Anything)
}

func TestDispatchCampaign_LegacyStatusMode(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{StatusMode: config.CampaignStatusModeLegacy}, nil)

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	_, err := h.dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CampaignStatus{models.CampaignStatusSent, models.CampaignStatusSent}, h.campaigns.statusUpdates)
}

func TestDispatchCampaign_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		uuid     string
		status   models.CampaignStatus
		tweak    func(*audienceFixture)
		audience models.TargetAudience
		check    func(error) bool
	}{
		{
			name:  "malformed campaign id",
			uuid:  "not-a-uuid",
			check: IsCampaignIDRequired,
		},
		{
			name:  "empty campaign id",
			uuid:  " ",
			check: IsCampaignIDRequired,
		},
		{
			name:  "unknown campaign",
			uuid:  uuid.NewString(),
			check: IsCampaignNotFound,
		},
		{
			name:   "already sent",
			status: models.CampaignStatusSent,
			check:  IsCampaignAlreadySent,
		},
		{
			name:   "dispatch in progress",
			status: models.CampaignStatusSending,
			check:  IsCampaignDispatchInProgress,
		},
		{
			name:  "resolution failure",
			tweak: func(fx *audienceFixture) { fx.prefs.err = errStoreDown },
			check: IsSegmentResolutionFailed,
		},
		{
			name: "no eligible recipients",
			tweak: func(fx *audienceFixture) {
				fx.contacts.contacts[0].Phone = "99988"
				fx.contacts.contacts[1].Phone = ""
			},
			check: IsNoEligibleRecipients,
		},
		{
			name:     "unknown target audience",
			audience: "vendors",
			check:    IsInvalidTargetAudience,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audience := models.TargetAudienceCustomers
			if tt.audience != "" {
				audience = tt.audience
			}
			campaign := newDispatchCampaign(audience, "Hi {name}")
			if tt.status != "" {
				campaign.Status = tt.status
			}
			h := newDispatchHarness(t, campaign, config.CampaignConfig{}, tt.tweak)

			id := dispatchCampaignUUID.String()
			if tt.uuid != "" {
				id = tt.uuid
			}
			resp, err := h.flow.DispatchCampaign(context.Background(), id, nil)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, tt.check(err), "unexpected error: %v", err)

			assert.Empty(t, h.logs.logs)
			assert.Empty(t, h.campaigns.statusUpdates)
			h.transport.AssertNotCalled(t, "SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.NoError(t, h.sql.ExpectationsWereMet())
		})
	}
}

func TestDispatchCampaign_LogSaveFailureDoesNotStopLoop(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)
	h.logs.saveErr = errStoreDown

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Twice()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	resp, err := h.dispatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.SentCount)
	assert.Empty(t, h.logs.logs)
	h.transport.AssertExpectations(t)
}

func TestDispatchCampaign_CancelledContextFailsRemaining(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := h.dispatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.SentCount)
	assert.Equal(t, 2, resp.FailedCount)

	require.Len(t, h.logs.logs, 2)
	for _, l := range h.logs.logs {
		assert.Equal(t, models.CampaignLogStatusFailed, l.Status)
		assert.Contains(t, *l.ErrorMessage, "context canceled")
	}
	h.transport.AssertNotCalled(t, "SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, models.CampaignStatusSent, campaign.Status)
}

func TestDispatchCampaign_FinalizeFailure(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)
	h.campaigns.statsErr = errStoreDown

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	h.sql.ExpectBegin()
	h.sql.ExpectRollback()

	resp, err := h.dispatch(context.Background())
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, errStoreDown)

	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "CAMPAIGN_FINALIZE_FAILED", be.Code)
	assert.Len(t, h.logs.logs, 2)
	assert.NoError(t, h.sql.ExpectationsWereMet())
}

func TestDispatchCampaign_InvalidatesAudiencePreview(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)
	ctx := context.Background()
	require.NoError(t, h.cache.Set(ctx, dispatchCampaignUUID.String(), &dto.AudiencePreviewResponse{EligibleRecipients: 2}))

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	_, err := h.dispatch(ctx)
	require.NoError(t, err)

	cached, err := h.cache.Get(ctx, dispatchCampaignUUID.String())
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestDispatchCampaign_SecondRunIsRejected(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Twice()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	_, err := h.dispatch(context.Background())
	require.NoError(t, err)

	_, err = h.dispatch(context.Background())
	assert.True(t, IsCampaignAlreadySent(err))
	assert.Len(t, h.logs.logs, 2)
	h.transport.AssertExpectations(t)
}

// barrierResolver holds every caller inside Resolve until all expected callers have arrived
type barrierResolver struct {
	inner   SegmentResolver
	arrived *sync.WaitGroup
}

func (b *barrierResolver) Resolve(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error) {
	recipients, err := b.inner.Resolve(ctx, campaign)
	b.arrived.Done()
	b.arrived.Wait()
	return recipients, err
}

// hookResolver runs after once the real resolution has finished
type hookResolver struct {
	inner SegmentResolver
	after func()
}

func (r *hookResolver) Resolve(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error) {
	recipients, err := r.inner.Resolve(ctx, campaign)
	r.after()
	return recipients, err
}

func TestDispatchCampaign_ConcurrentRunsSendOnce(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{}, nil)

	arrived := &sync.WaitGroup{}
	arrived.Add(2)
	h.useResolver(&barrierResolver{inner: h.fixture.resolver(), arrived: arrived})

	h.transport.On("SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Twice()
	h.sql.ExpectBegin()
	h.sql.ExpectCommit()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.dispatch(context.Background())
		}()
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsCampaignDispatchInProgress(err):
			rejected++
		default:
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	h.transport.AssertNumberOfCalls(t, "SendMarketingMessage", 2)
	assert.Len(t, h.logs.logs, 2)
	assert.Equal(t, []models.CampaignStatus{models.CampaignStatusSending, models.CampaignStatusSent}, h.campaigns.statusUpdates)
	require.NoError(t, h.sql.ExpectationsWereMet())
}

func TestDispatchCampaign_LegacyModeLosesClaimToFinishedRun(t *testing.T) {
	campaign := newDispatchCampaign(models.TargetAudienceSellers, "Hi {name}")
	h := newDispatchHarness(t, campaign, config.CampaignConfig{StatusMode: config.CampaignStatusModeLegacy}, nil)

	h.useResolver(&hookResolver{inner: h.fixture.resolver(), after: func() {
		h.campaigns.mu.Lock()
		defer h.campaigns.mu.Unlock()
		h.campaigns.campaigns[0].Status = models.CampaignStatusSent
	}})

	_, err := h.dispatch(context.Background())
	require.Error(t, err)
	assert.True(t, IsCampaignAlreadySent(err))

	h.transport.AssertNotCalled(t, "SendMarketingMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, h.logs.logs)
	assert.Empty(t, h.campaigns.statusUpdates)
}
