package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanpawarit/kcartbot/marketplace/model"
)

func seedSupplierAndProduct(t *testing.T, s *Store) (*model.User, *model.Product) {
	t.Helper()
	ctx := context.Background()

	supplier := &model.User{Name: "Abebe Farms", Role: model.RoleSupplier}
	require.NoError(t, s.CreateUser(ctx, supplier))
	product := &model.Product{Name: "Avocados", InternalName: "avocado", Unit: "kg"}
	require.NoError(t, s.CreateProduct(ctx, product))
	return supplier, product
}

func TestUpsertListingOverwritesSupplierProductPair(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	supplier, product := seedSupplierAndProduct(t, s)

	first := &model.InventoryListing{
		SupplierID:    supplier.ID,
		ProductID:     product.ID,
		Quantity:      100,
		Price:         decimal.RequireFromString("90.00"),
		AvailableDate: model.Day(time.Now()),
	}
	created, err := s.UpsertListing(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	second := &model.InventoryListing{
		SupplierID:    supplier.ID,
		ProductID:     product.ID,
		Quantity:      40,
		Price:         decimal.RequireFromString("85.50"),
		AvailableDate: model.Day(time.Now()),
	}
	created, err = s.UpsertListing(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetListing(ctx, supplier.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, got.Quantity)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("85.5")), "price = %s", got.Price)
	assert.Equal(t, model.ListingActive, got.Status)

	count, err := s.DB().NewSelect().Model((*model.InventoryListing)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFindProductIsCaseInsensitiveSubstring(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	_, product := seedSupplierAndProduct(t, s)

	got, err := s.FindProduct(ctx, "AVOCA")
	require.NoError(t, err)
	assert.Equal(t, product.ID, got.ID)

	_, err = s.FindProduct(ctx, "mango")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = s.FindProduct(ctx, "  ")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestFindProductMatchesWildcardsLiterally(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	_, avocado := seedSupplierAndProduct(t, s)
	redOnion := &model.Product{Name: "Red Onion", InternalName: "red_onion", Unit: "kg"}
	require.NoError(t, s.CreateProduct(ctx, redOnion))

	for _, term := range []string{"a_o", "%", "avo%do"} {
		_, err := s.FindProduct(ctx, term)
		assert.ErrorIs(t, err, model.ErrNotFound, "term %q", term)
	}

	got, err := s.FindProduct(ctx, "red_onion")
	require.NoError(t, err)
	assert.Equal(t, redOnion.ID, got.ID)

	got, err = s.FindProduct(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, avocado.ID, got.ID, "ties resolve to the lowest display name")
}

func TestExpiringListingsWindow(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	supplier, _ := seedSupplierAndProduct(t, s)
	today := model.Day(time.Now())

	mk := func(name string, expiry *time.Time, status model.ListingStatus) {
		p := &model.Product{Name: name, Unit: "kg"}
		require.NoError(t, s.CreateProduct(ctx, p))
		_, err := s.UpsertListing(ctx, &model.InventoryListing{
			SupplierID:    supplier.ID,
			ProductID:     p.ID,
			Quantity:      10,
			Price:         decimal.NewFromInt(5),
			Status:        status,
			AvailableDate: today,
			ExpiryDate:    expiry,
		})
		require.NoError(t, err)
	}
	at := func(days int) *time.Time {
		d := today.AddDate(0, 0, days)
		return &d
	}

	mk("Tomato", at(3), model.ListingActive)
	mk("Onion", at(0), model.ListingActive)
	mk("Garlic", at(-1), model.ListingActive)
	mk("Potato", at(9), model.ListingActive)
	mk("Carrot", at(2), model.ListingInactive)
	mk("Cabbage", nil, model.ListingActive)

	got, err := s.ExpiringListings(ctx, today, today.AddDate(0, 0, 7))
	require.NoError(t, err)

	var names []string
	for _, l := range got {
		names = append(names, l.Product.Name)
	}
	assert.Equal(t, []string{"Onion", "Tomato"}, names)
}

func TestUnsentNotificationsAndMarkSent(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Minute)

	for i, msg := range []string{"first", "second"} {
		require.NoError(t, s.InsertNotification(ctx, &model.NotificationEvent{
			UserID:    "u1",
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.InsertNotification(ctx, &model.NotificationEvent{UserID: "u2", Message: "other"}))

	unsent, err := s.UnsentNotifications(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, unsent, 2)
	assert.Equal(t, "first", unsent[0].Message)
	assert.Equal(t, model.NotificationGeneral, unsent[0].Type)

	require.NoError(t, s.MarkNotificationsSent(ctx, []string{unsent[0].ID, unsent[1].ID}))

	unsent, err = s.UnsentNotifications(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unsent)

	other, err := s.UnsentNotifications(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRespondSupplierOrderOnlyFromPending(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	order := &model.Order{ID: "o1", CustomerID: "c1", Status: model.OrderPendingAcceptance, CreatedAt: now, UpdatedAt: now}
	portion := &model.SupplierOrder{ID: "so1", OrderID: "o1", SupplierID: "s1", Status: model.OrderPendingAcceptance}
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		return tx.InsertOrder(ctx, order, nil, []*model.SupplierOrder{portion})
	}))

	ok, err := s.RespondSupplierOrder(ctx, "o1", "s1", model.OrderDeclined, "out of stock", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.RespondSupplierOrder(ctx, "o1", "s1", model.OrderAccepted, "", now)
	require.NoError(t, err)
	assert.False(t, ok)

	portions, err := s.SupplierOrders(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, portions, 1)
	assert.Equal(t, model.OrderDeclined, portions[0].Status)
	assert.Equal(t, "out of stock", portions[0].Reason)
}

func TestLockOrderInsideTransaction(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	order := &model.Order{ID: "o1", CustomerID: "c1", Status: model.OrderPendingAcceptance, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		return tx.InsertOrder(ctx, order, nil, nil)
	}))

	require.NoError(t, s.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		return tx.LockOrder(ctx, "o1")
	}))

	err := s.RunInTx(ctx, func(ctx context.Context, tx *Store) error {
		return tx.LockOrder(ctx, "missing")
	})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTranscriptReturnsLatestInOrder(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertTurn(ctx, &model.ConversationTurn{
			UserID:    "u1",
			Sender:    model.SenderUser,
			Message:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	turns, err := s.Transcript(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, "c", turns[0].Message)
	assert.Equal(t, "e", turns[2].Message)
	assert.Equal(t, model.TurnText, turns[2].MessageType)
}

func TestCompetitorAveragesPerTier(t *testing.T) {
	s := New(NewTestDB(t))
	ctx := context.Background()
	_, product := seedSupplierAndProduct(t, s)
	today := model.Day(time.Now())

	prices := []struct {
		daysAgo int
		tier    model.CompetitorTier
		price   string
	}{
		{1, model.TierLocalShop, "100"},
		{2, model.TierLocalShop, "110"},
		{1, model.TierSupermarket, "130"},
		{45, model.TierSupermarket, "999"},
	}
	for _, p := range prices {
		require.NoError(t, s.InsertCompetitorPrice(ctx, &model.CompetitorPrice{
			ProductID: product.ID,
			Date:      today.AddDate(0, 0, -p.daysAgo),
			Tier:      p.tier,
			Price:     decimal.RequireFromString(p.price),
		}))
	}

	dup := &model.CompetitorPrice{ProductID: product.ID, Date: today.AddDate(0, 0, -1), Tier: model.TierLocalShop, Price: decimal.NewFromInt(1)}
	assert.Error(t, s.InsertCompetitorPrice(ctx, dup))

	avg, err := s.CompetitorAverages(ctx, product.ID, today.AddDate(0, 0, -30), today)
	require.NoError(t, err)
	assert.True(t, avg[model.TierLocalShop].Equal(decimal.NewFromInt(105)))
	assert.True(t, avg[model.TierSupermarket].Equal(decimal.NewFromInt(130)))
	_, ok := avg[model.TierDistributionCenter]
	assert.False(t, ok)
}
