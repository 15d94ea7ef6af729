package cart

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	client   *db.Client
	svc      Service
	products products.Repository
}

func newFixture(t *testing.T, client *db.Client) fixture {
	t.Helper()
	productRepo := products.NewRepository(client.DB())
	svc, err := NewService(NewRepository(client.DB()), productRepo, client)
	require.NoError(t, err)
	return fixture{client: client, svc: svc, products: productRepo}
}

func (f fixture) product(t *testing.T, name string, price, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: "toys", Price: price, Stock: stock, Image: "/images/default.jpg"}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f fixture) lineCount(t *testing.T, sessionID string, productID int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(&models.CartItem{}).
		Where("session_id = ? AND product_id = ?", sessionID, productID).
		Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func TestAddToCartMergesIntoSingleLine(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		p := f.product(t, "Robot", 2500, 5)
		session := NewSessionID()

		res, err := f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: p.ID, Quantity: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Quantity)

		res, err = f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: p.ID, Quantity: 3})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Quantity)
		assert.EqualValues(t, 1, f.lineCount(t, session, p.ID))

		_, err = f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: p.ID, Quantity: 1})
		requireCode(t, err, pkgerrors.CodeInsufficient)
		details, ok := pkgerrors.StockDetailsOf(err)
		require.True(t, ok)
		assert.Equal(t, 5, details.Available)

		cart, err := f.svc.List(ctx, session, nil)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 5, cart.Items[0].Quantity, "rejected merge must not persist")

		reloaded, err := f.products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, reloaded.Stock, "cart adds never take stock")
	})
}

func TestAddToCartValidation(t *testing.T) {
	f := newFixture(t, dbtest.NewSQLite(t))
	ctx := context.Background()
	p := f.product(t, "Ball", 300, 2)

	_, err := f.svc.AddToCart(ctx, AddInput{SessionID: " ", ProductID: p.ID, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddToCart(ctx, AddInput{SessionID: "s", ProductID: p.ID, Quantity: 0})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.AddToCart(ctx, AddInput{SessionID: "s", ProductID: 9999, Quantity: 1})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.AddToCart(ctx, AddInput{SessionID: "s", ProductID: p.ID, Quantity: 3})
	requireCode(t, err, pkgerrors.CodeInsufficient)
	assert.Zero(t, f.lineCount(t, "s", p.ID))
}

func TestSetQuantity(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		p := f.product(t, "Kite", 1200, 4)
		session := NewSessionID()

		_, err := f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)

		res, err := f.svc.SetQuantity(ctx, session, p.ID, 3)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Quantity)

		_, err = f.svc.SetQuantity(ctx, session, p.ID, 10)
		requireCode(t, err, pkgerrors.CodeInsufficient)

		cart, err := f.svc.List(ctx, session, nil)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, 3, cart.Items[0].Quantity, "overwrite, not merge")

		_, err = f.svc.SetQuantity(ctx, session, p.ID, 0)
		require.NoError(t, err)
		assert.Zero(t, f.lineCount(t, session, p.ID))

		_, err = f.svc.SetQuantity(ctx, session, p.ID, -4)
		require.NoError(t, err, "removing an absent line is fine")
	})
}

func TestRemoveAndClearAreIdempotent(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		a := f.product(t, "Puzzle", 900, 10)
		b := f.product(t, "Blocks", 1900, 10)
		session := NewSessionID()

		for _, id := range []int64{a.ID, b.ID} {
			_, err := f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: id, Quantity: 2})
			require.NoError(t, err)
		}

		require.NoError(t, f.svc.Remove(ctx, session, a.ID))
		require.NoError(t, f.svc.Remove(ctx, session, a.ID))

		cart, err := f.svc.List(ctx, session, nil)
		require.NoError(t, err)
		require.Len(t, cart.Items, 1)
		assert.Equal(t, b.ID, cart.Items[0].ProductID)

		require.NoError(t, f.svc.Clear(ctx, session))
		require.NoError(t, f.svc.Clear(ctx, session))

		cart, err = f.svc.List(ctx, session, nil)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.Zero(t, cart.Total)
	})
}

func TestListJoinsLiveProductData(t *testing.T) {
	f := newFixture(t, dbtest.NewSQLite(t))
	ctx := context.Background()
	a := f.product(t, "Yo-yo", 250, 10)
	b := f.product(t, "Drone", 15000, 3)
	session := NewSessionID()

	_, err := f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: a.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, AddInput{SessionID: session, ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	a.Price = 300
	require.NoError(t, f.products.Update(ctx, a))

	cart, err := f.svc.List(ctx, session, nil)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 300, cart.Items[0].Price)
	assert.Equal(t, 1200, cart.Items[0].Total)
	assert.Equal(t, "12.00", cart.Items[0].TotalDisplay)
	assert.Equal(t, 16200, cart.Total)
	assert.Equal(t, 5, cart.ItemCount)
}

func TestAddToCartRejectsUnknownUser(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		p := f.product(t, "Drum", 1200, 4)
		missing := int64(999)
		session := UserSessionID(missing)

		_, err := f.svc.AddToCart(ctx, AddInput{SessionID: session, UserID: &missing, ProductID: p.ID, Quantity: 1})
		requireCode(t, err, pkgerrors.CodeNotFound)
		assert.Zero(t, f.lineCount(t, session, p.ID))

		exists, err := NewRepository(client.DB()).UserExists(ctx, missing)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestMergeGuestCart(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		shared := f.product(t, "Train", 4000, 5)
		guestOnly := f.product(t, "Car", 1000, 5)
		user := &models.User{Name: "Shopper", Email: "shopper@example.com", PasswordHash: "x"}
		require.NoError(t, client.DB().Create(user).Error)
		userID := user.ID
		guest := NewSessionID()
		userSession := UserSessionID(userID)

		_, err := f.svc.AddToCart(ctx, AddInput{SessionID: userSession, UserID: &userID, ProductID: shared.ID, Quantity: 3})
		require.NoError(t, err)
		_, err = f.svc.AddToCart(ctx, AddInput{SessionID: guest, ProductID: shared.ID, Quantity: 4})
		require.NoError(t, err)
		_, err = f.svc.AddToCart(ctx, AddInput{SessionID: guest, ProductID: guestOnly.ID, Quantity: 2})
		require.NoError(t, err)

		cart, err := f.svc.MergeGuestCart(ctx, guest, userID)
		require.NoError(t, err)
		require.Len(t, cart.Items, 2)
		byProduct := map[int64]int{}
		for _, item := range cart.Items {
			byProduct[item.ProductID] = item.Quantity
		}
		assert.Equal(t, 5, byProduct[shared.ID], "summed and capped at stock")
		assert.Equal(t, 2, byProduct[guestOnly.ID])
		assert.EqualValues(t, 1, f.lineCount(t, userSession, shared.ID))

		leftover, err := f.svc.List(ctx, guest, nil)
		require.NoError(t, err)
		assert.Empty(t, leftover.Items)

		_, err = f.svc.MergeGuestCart(ctx, guest, 0)
		requireCode(t, err, pkgerrors.CodeValidation)
	})
}

func TestNewSessionIDFormat(t *testing.T) {
	id := NewSessionID()
	assert.Regexp(t, `^sess_\d{13}_[0-9a-f]{9}$`, id)
	assert.True(t, IsGuestSession(id))
	assert.NotEqual(t, id, NewSessionID())
	assert.Equal(t, "user_7", UserSessionID(7))
	assert.False(t, IsGuestSession(UserSessionID(7)))

	owner, ok := SessionOwner(UserSessionID(7))
	assert.True(t, ok)
	assert.EqualValues(t, 7, owner)
	for _, raw := range []string{id, "user_", "user_x", "user_-3", "user_0"} {
		_, ok := SessionOwner(raw)
		assert.False(t, ok, raw)
	}
}

func TestDeleteStaleGuestLines(t *testing.T) {
	dbtest.Backends(t, func(t *testing.T, client *db.Client) {
		f := newFixture(t, client)
		ctx := context.Background()
		p := f.product(t, "Kite", 900, 10)
		old := time.Now().UTC().Add(-72 * time.Hour)
		owner := &models.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: enums.UserRoleCustomer}
		require.NoError(t, client.DB().Create(owner).Error)
		userID := owner.ID

		for _, item := range []models.CartItem{
			{SessionID: "sess_stale", ProductID: p.ID, Quantity: 1, CreatedAt: old, UpdatedAt: old},
			{SessionID: "sess_fresh", ProductID: p.ID, Quantity: 1},
			{SessionID: UserSessionID(userID), UserID: &userID, ProductID: p.ID, Quantity: 1, CreatedAt: old, UpdatedAt: old},
		} {
			require.NoError(t, client.DB().Create(&item).Error)
		}

		deleted, err := NewRepository(client.DB()).DeleteStaleGuestLines(ctx, time.Now().UTC().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)
		assert.Zero(t, f.lineCount(t, "sess_stale", p.ID))
		assert.EqualValues(t, 1, f.lineCount(t, "sess_fresh", p.ID))
		assert.EqualValues(t, 1, f.lineCount(t, UserSessionID(userID), p.ID))
	})
}
