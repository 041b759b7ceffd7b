package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"inventory-admin/internal/model"
	"inventory-admin/internal/transfer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryFixture(batchSize int) (InventoryService, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	events := &fakePublisher{}
	svc := NewInventoryService(fakeProductRepo{s: store}, fakeAuditRepo{s: store}, store, events, batchSize)
	return svc, store, events
}

func seedCatalog(store *fakeStore) {
	cat, unit := uuid.New(), uuid.New()
	for i, code := range []string{"A-1", "B-2", "C-3", "D-4", "E-5"} {
		id := uuid.New()
		store.products[id] = model.Product{
			ID:           id,
			Name:         "Item " + code,
			Code:         code,
			Quantity:     i * 3,
			BuyingPrice:  decimal.New(int64(125+i), -2),
			SellingPrice: decimal.New(int64(300+i), -2),
			CategoryID:   cat,
			UnitID:       unit,
		}
	}
}

func sortedProducts(store *fakeStore) []model.Product {
	out := make([]model.Product, 0, len(store.products))
	for _, p := range store.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func TestInventoryService_ExportImportRoundTrip(t *testing.T) {
	for _, format := range []transfer.Format{transfer.FormatXLSX, transfer.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			// a batch size smaller than the catalog forces several batches
			source, sourceStore, _ := newInventoryFixture(2)
			seedCatalog(sourceStore)

			var buf bytes.Buffer
			require.NoError(t, source.Export(context.Background(), format, &buf))

			target, targetStore, events := newInventoryFixture(2)
			res, err := target.Import(context.Background(), uuid.NewString(), format.FileName("inventory"), bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)
			assert.Equal(t, 5, res.Imported)

			want, got := sortedProducts(sourceStore), sortedProducts(targetStore)
			require.Len(t, got, len(want))
			for i := range want {
				assert.NotEqual(t, want[i].ID, got[i].ID, "imported rows get fresh ids")
				assert.Equal(t, want[i].Name, got[i].Name)
				assert.Equal(t, want[i].Code, got[i].Code)
				assert.Equal(t, want[i].Quantity, got[i].Quantity)
				assert.True(t, want[i].BuyingPrice.Equal(got[i].BuyingPrice))
				assert.True(t, want[i].SellingPrice.Equal(got[i].SellingPrice))
				assert.Equal(t, want[i].CategoryID, got[i].CategoryID)
				assert.Equal(t, want[i].UnitID, got[i].UnitID)
			}

			require.Len(t, targetStore.audits, 1)
			assert.Equal(t, model.ActionImportInventory, targetStore.audits[0].Action)
			assert.Equal(t, []string{EventInventoryImported}, events.names())
		})
	}
}

func TestInventoryService_ExportCSVLayout(t *testing.T) {
	svc, store, _ := newInventoryFixture(0)
	seedCatalog(store)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), transfer.FormatCSV, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "ID,Name,Code,Quantity,Buying Price,Selling Price,Category ID,Unit ID", lines[0])
	assert.Contains(t, lines[1], ",Item A-1,A-1,0,1.25,3,")
}

// droppedConnection serves the first batch and then fails.
type droppedConnection struct {
	fakeProductRepo
}

func (d droppedConnection) EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Product) error) error {
	served := false
	err := d.fakeProductRepo.EachBatch(ctx, batchSize, func(batch []model.Product) error {
		if served {
			return errors.New("connection reset")
		}
		served = true
		return fn(batch)
	})
	if err == nil {
		err = errors.New("connection reset")
	}
	return err
}

func TestInventoryService_ExportFailureWritesNothing(t *testing.T) {
	for _, format := range []transfer.Format{transfer.FormatXLSX, transfer.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			store := newFakeStore()
			seedCatalog(store)
			svc := NewInventoryService(droppedConnection{fakeProductRepo{s: store}}, fakeAuditRepo{s: store}, store, nil, 2)

			var buf bytes.Buffer
			err := svc.Export(context.Background(), format, &buf)

			assert.ErrorIs(t, err, ErrPersistence)
			assert.Zero(t, buf.Len(), "a failed export must not leave a file that looks complete")
		})
	}
}

func TestInventoryService_ImportRejectsMalformedRow(t *testing.T) {
	svc, store, events := newInventoryFixture(0)
	cat, unit := uuid.NewString(), uuid.NewString()
	content := "name,code,quantity,buying_price,selling_price,category_id,unit_id\n" +
		"Good,G-1,1,1,1," + cat + "," + unit + "\n" +
		"Bad,B-1,many,1,1," + cat + "," + unit + "\n"

	_, err := svc.Import(context.Background(), uuid.NewString(), "stock.csv", strings.NewReader(content))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a whole number", verr.Fields["rows[3].quantity"])
	assert.Empty(t, store.products, "no row of a rejected file is stored")
	assert.Empty(t, store.audits)
	assert.Empty(t, events.names())
}

func TestInventoryService_ImportRejectsDuplicateCode(t *testing.T) {
	svc, store, _ := newInventoryFixture(0)
	seedCatalog(store)
	cat, unit := uuid.NewString(), uuid.NewString()
	content := "name,code,quantity,buying_price,selling_price,category_id,unit_id\n" +
		"New,N-1,1,1,1," + cat + "," + unit + "\n" +
		"Clash,A-1,1,1,1," + cat + "," + unit + "\n"

	_, err := svc.Import(context.Background(), uuid.NewString(), "stock.csv", strings.NewReader(content))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "code")
	assert.Len(t, store.products, 5, "the batch is rolled back")
}

func TestInventoryService_ImportRejectsNonSpreadsheet(t *testing.T) {
	svc, store, _ := newInventoryFixture(0)
	gif := []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\xff\xff\xff\x00\x00\x00!\xf9\x04")

	_, err := svc.Import(context.Background(), uuid.NewString(), "stock.xlsx", bytes.NewReader(gif))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "file")
	assert.Empty(t, store.products)
}

func TestInventoryService_ImportRequiresActor(t *testing.T) {
	svc, _, _ := newInventoryFixture(0)

	_, err := svc.Import(context.Background(), "", "stock.csv", strings.NewReader("name\n"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "actor")
}
