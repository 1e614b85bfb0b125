package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/storefront-campaigns/models"
	"github.com/amirphl/storefront-campaigns/utils"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// randomPhone returns a ten digit mobile number
func randomPhone() string {
	return fmt.Sprintf("9%09d", rand.Intn(1000000000))
}

// CreateTestCampaign inserts a draft campaign
func (tf *TestFixtures) CreateTestCampaign(audience models.TargetAudience, segment models.CustomerSegment, message string) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Title:           fmt.Sprintf("Test campaign %d", rand.Intn(1000000)),
		TargetAudience:  audience,
		CustomerSegment: segment,
		Message:         message,
		Status:          models.CampaignStatusDraft,
		CreatedBy:       "admin-1",
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestContact inserts a contact. An empty phone generates a random one.
func (tf *TestFixtures) CreateTestContact(userID, name, phone string, registeredAt time.Time) (*models.Contact, error) {
	if phone == "" {
		phone = randomPhone()
	}
	contact := &models.Contact{
		UserID:    userID,
		Name:      name,
		Phone:     phone,
		Email:     fmt.Sprintf("%s@example.com", userID),
		CreatedAt: registeredAt,
	}
	if err := tf.DB.DB.Create(contact).Error; err != nil {
		return nil, fmt.Errorf("failed to create test contact %s: %w", userID, err)
	}
	return contact, nil
}

// CreateTestOrder inserts an order for userID placed at createdAt
func (tf *TestFixtures) CreateTestOrder(userID string, total float64, billingCity string, createdAt time.Time, products ...string) (*models.Order, error) {
	order := &models.Order{
		UserID:        userID,
		TotalAmount:   total,
		BillingCity:   billingCity,
		ProductTitles: pq.StringArray(products),
		CreatedAt:     createdAt,
	}
	if err := tf.DB.DB.Create(order).Error; err != nil {
		return nil, fmt.Errorf("failed to create test order for %s: %w", userID, err)
	}
	return order, nil
}

// CreateTestAddress inserts a saved shipping address
func (tf *TestFixtures) CreateTestAddress(userID, state, city string) error {
	address := &models.BuyerAddress{UserID: userID, State: state, City: city, CreatedAt: utils.UTCNow()}
	if err := tf.DB.DB.Create(address).Error; err != nil {
		return fmt.Errorf("failed to create test address for %s: %w", userID, err)
	}
	return nil
}

// SetMarketingOptIn writes the user's marketing preference
func (tf *TestFixtures) SetMarketingOptIn(userID string, optIn bool) error {
	pref := &models.CustomerPreference{UserID: userID, MarketingOptIn: optIn, UpdatedAt: utils.ToPtr(utils.UTCNow())}
	if err := tf.DB.DB.Create(pref).Error; err != nil {
		return fmt.Errorf("failed to create preference for %s: %w", userID, err)
	}
	return nil
}

// CreateTestBusiness registers a seller business owned by userID
func (tf *TestFixtures) CreateTestBusiness(ownerUserID, name string) error {
	business := &models.Business{OwnerUserID: ownerUserID, Name: name, CreatedAt: utils.UTCNow()}
	if err := tf.DB.DB.Create(business).Error; err != nil {
		return fmt.Errorf("failed to create business for %s: %w", ownerUserID, err)
	}
	return nil
}
