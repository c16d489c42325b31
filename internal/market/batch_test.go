package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Kostya12rus/steam-work-example/internal/domain"
)

func stackItem(name string, units ...*domain.ItemUnit) *domain.ItemDescriptor {
	return &domain.ItemDescriptor{
		AppID:      3017120,
		ClassID:    "100",
		InstanceID: "0",
		Name:       name,
		Marketable: true,
		Units:      units,
	}
}

func TestSellAll(t *testing.T) {
	var sells int
	mux := http.NewServeMux()
	mux.HandleFunc("/market/sellitem/", func(w http.ResponseWriter, r *http.Request) {
		sells++
		fmt.Fprint(w, `{"success":true}`)
	})

	c, account := testClient(t, mux, newMemoryCache())

	items := []*domain.ItemDescriptor{
		stackItem("Ore",
			&domain.ItemUnit{AssetID: "a1", Amount: 3},
			&domain.ItemUnit{AssetID: "a2", Amount: 5}),
		stackItem("Gem", &domain.ItemUnit{AssetID: "b1", Amount: 1}),
	}

	sold, err := c.SellAll(context.Background(), account, items, func(*domain.ItemDescriptor) int64 { return 53 }, nil)
	if err != nil {
		t.Fatalf("SellAll: %v", err)
	}
	if sold != 3 || sells != 3 {
		t.Errorf("sold = %d, requests = %d, want 3", sold, sells)
	}
}

func TestSellAll_AbortsWhenSessionDies(t *testing.T) {
	var sells int
	mux := http.NewServeMux()
	mux.HandleFunc("/market/sellitem/", func(w http.ResponseWriter, r *http.Request) {
		sells++
		fmt.Fprint(w, `{"success":true}`)
	})

	c, account := testClient(t, mux, newMemoryCache())

	items := []*domain.ItemDescriptor{
		stackItem("Ore",
			&domain.ItemUnit{AssetID: "a1", Amount: 1},
			&domain.ItemUnit{AssetID: "a2", Amount: 1},
			&domain.ItemUnit{AssetID: "a3", Amount: 1}),
	}

	calls := 0
	alive := func() bool {
		calls++
		return calls <= 2
	}

	sold, err := c.SellAll(context.Background(), account, items, func(*domain.ItemDescriptor) int64 { return 10 }, alive)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	// Two calls went through before the session died; they stay applied.
	if sold != 2 || sells != 2 {
		t.Errorf("sold = %d, requests = %d, want 2", sold, sells)
	}
}

func TestSellAll_SkipsUnpricedAndUnmarketable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/sellitem/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no sell should be attempted")
	})

	c, account := testClient(t, mux, newMemoryCache())

	locked := stackItem("Locked", &domain.ItemUnit{AssetID: "x1", Amount: 1})
	locked.Marketable = false
	items := []*domain.ItemDescriptor{
		locked,
		stackItem("Unpriced", &domain.ItemUnit{AssetID: "y1", Amount: 1}),
	}

	sold, err := c.SellAll(context.Background(), account, items, func(d *domain.ItemDescriptor) int64 { return 0 }, nil)
	if err != nil || sold != 0 {
		t.Errorf("sold = %d, err = %v", sold, err)
	}
}

func TestStackAll(t *testing.T) {
	var combines int
	mux := http.NewServeMux()
	mux.HandleFunc("/IInventoryService/CombineItemStacks/v1/", func(w http.ResponseWriter, r *http.Request) {
		combines++
		fmt.Fprint(w, `{"response":{}}`)
	})

	c, account := testClient(t, mux, newMemoryCache())

	item := stackItem("Ore",
		&domain.ItemUnit{AssetID: "a1", Amount: 3},
		&domain.ItemUnit{AssetID: "a2", Amount: 5},
		&domain.ItemUnit{AssetID: "a3", Amount: 2})

	combined, err := c.StackAll(context.Background(), account, item, nil)
	if err != nil {
		t.Fatalf("StackAll: %v", err)
	}
	if combined != 2 || combines != 2 {
		t.Errorf("combined = %d, requests = %d, want 2", combined, combines)
	}
	// The local model mirrors the applied merges.
	if item.Units[0].Amount != 10 {
		t.Errorf("dest amount = %d, want 10", item.Units[0].Amount)
	}
	if item.Units[1].Amount != 0 || item.Units[2].Amount != 0 {
		t.Error("source stacks not zeroed")
	}
	if item.Amount() != 10 {
		t.Errorf("total = %d, want 10", item.Amount())
	}
}

func TestStackAll_SingleStackIsNoop(t *testing.T) {
	mux := http.NewServeMux()
	c, account := testClient(t, mux, newMemoryCache())

	item := stackItem("Ore", &domain.ItemUnit{AssetID: "a1", Amount: 3})
	combined, err := c.StackAll(context.Background(), account, item, nil)
	if err != nil || combined != 0 {
		t.Errorf("combined = %d, err = %v", combined, err)
	}
}

func TestCancelAllListings(t *testing.T) {
	var cancels int
	mux := http.NewServeMux()
	mux.HandleFunc("/market/mylistings", func(w http.ResponseWriter, r *http.Request) {
		if cancels >= 2 {
			fmt.Fprint(w, `{"success":true,"total_count":0,"listings":[]}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"total_count":2,"listings":[
			{"listingid":"L1","price":53,"fee":9,"asset":{"appid":3017120,"contextid":"2","id":"a1","amount":"1"}},
			{"listingid":"L2","price":53,"fee":9,"asset":{"appid":3017120,"contextid":"2","id":"a2","amount":"1"}}
		]}`)
	})
	mux.HandleFunc("/market/removelisting/", func(w http.ResponseWriter, r *http.Request) {
		cancels++
		fmt.Fprint(w, `[]`)
	})

	c, account := testClient(t, mux, newMemoryCache())
	cancelled, err := c.CancelAllListings(context.Background(), account, nil)
	if err != nil {
		t.Fatalf("CancelAllListings: %v", err)
	}
	if cancelled != 2 || cancels != 2 {
		t.Errorf("cancelled = %d, requests = %d, want 2", cancelled, cancels)
	}
}

func TestCancelAllListings_Abort(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/mylistings", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"total_count":1,"listings":[
			{"listingid":"L1","price":53,"fee":9,"asset":{"appid":3017120,"contextid":"2","id":"a1","amount":"1"}}
		]}`)
	})

	c, account := testClient(t, mux, newMemoryCache())
	cancelled, err := c.CancelAllListings(context.Background(), account, func() bool { return false })
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if cancelled != 0 {
		t.Errorf("cancelled = %d, want 0", cancelled)
	}
}
