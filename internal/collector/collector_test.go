package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/fetcher"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func fetcherConfig() config.FetcherConfig {
	return config.DefaultConfig().Fetcher
}

func TestShopifyPaginationStopsOnEmptyPage(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/broken/products.json" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.URL.Path != "/collections/helmets/products.json" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("limit") != "250" {
			t.Errorf("expected limit=250, got %q", r.URL.Query().Get("limit"))
		}
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		var products []map[string]any
		switch page {
		case "1":
			products = []map[string]any{
				{"title": "Josh Allen Signed Mini Helmet", "handle": "josh-allen-mini", "variants": []map[string]any{
					{"price": "149.99", "available": false},
					{"price": "159.99", "available": true},
				}},
				{"title": "Tom Brady Signed Authentic Helmet", "handle": "brady-auth", "variants": []map[string]any{
					{"price": "2499.00", "available": false},
				}},
			}
		case "2":
			products = []map[string]any{
				{"title": "Jerry Rice Signed Mini Helmet", "handle": "rice-mini", "variants": []map[string]any{
					{"price": "129.00", "available": true},
				}},
				{"title": "   ", "handle": "blank"},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"products": products})
	}))
	defer srv.Close()

	cfg := config.SourceConfig{
		BaseURL:           srv.URL,
		Paths:             []string{"/collections/broken", "/collections/helmets"},
		MaxPages:          10,
		DefaultHelmetType: "fullsize-replica",
	}
	c := NewRSA(cfg, fetcherConfig(), testLogger)

	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if strings.Join(pagesServed, ",") != "1,2,3" {
		t.Errorf("expected pages 1,2,3, got %v", pagesServed)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 listings, got %d", len(listings))
	}

	expected := []struct{ title, price, url string }{
		{"Josh Allen Signed Mini Helmet", "159.99", srv.URL + "/products/josh-allen-mini"},
		{"Tom Brady Signed Authentic Helmet", "2499.00", srv.URL + "/products/brady-auth"},
		{"Jerry Rice Signed Mini Helmet", "129.00", srv.URL + "/products/rice-mini"},
	}
	for i, e := range expected {
		l := listings[i]
		if l.Title != e.title || l.RawPrice != e.price || l.URL != e.url || l.Source != "rsa" {
			t.Errorf("listing %d: unexpected %+v", i, l)
		}
	}
	if c.Name() != catalog.SourceRSA || c.DefaultHelmetType() != catalog.HelmetReplica {
		t.Errorf("unexpected name/type %s %s", c.Name(), c.DefaultHelmetType())
	}
}

func radtkePage(cards []string, next string) string {
	var b strings.Builder
	b.WriteString("<html><head>")
	if next != "" {
		fmt.Fprintf(&b, `<link rel="next" href="%s">`, next)
	}
	b.WriteString("</head><body><div class=\"grid\">")
	for _, c := range cards {
		b.WriteString(c)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func card(title, price, href string) string {
	return fmt.Sprintf(`<div class="product-item"><a href="%s"><span class="product-item__title">%s</span></a><span class="product-item__price">%s</span></div>`, href, title, price)
}

func TestPageCollectorFollowsPagination(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, radtkePage([]string{
				card("Bo Nix Signed Broncos Mini Helmet", "$189.99", "/products/nix-mini"),
				card("Drake Maye Signed Patriots Mini Helmet", "$199.99", "/products/maye-mini"),
			}, "/collections/minis?page=2"))
		case "2":
			fmt.Fprint(w, radtkePage([]string{
				card("Jayden Daniels Signed Mini Helmet", "$219.99", "/products/daniels-mini"),
				card("Bo Nix Signed Broncos Mini Helmet", "$189.99", "/products/nix-mini"),
			}, ""))
		default:
			fmt.Fprint(w, radtkePage(nil, ""))
		}
	}))
	defer srv.Close()

	fcfg := fetcherConfig()
	f, err := fetcher.NewHTTPFetcher(&fcfg, testLogger)
	if err != nil {
		t.Fatalf("fetcher: %v", err)
	}
	defer f.Close()

	cfg := config.SourceConfig{BaseURL: srv.URL, Paths: []string{"/collections/minis"}, MaxPages: 10, DefaultHelmetType: "mini"}
	c := NewRadtke(cfg, f, testLogger)

	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(listings) != 3 {
		t.Fatalf("expected 3 unique listings, got %d", len(listings))
	}
	if requests != 3 {
		t.Errorf("expected 3 requests (two pages and an empty one), got %d", requests)
	}
	if listings[2].Title != "Jayden Daniels Signed Mini Helmet" || listings[2].URL != srv.URL+"/products/daniels-mini" {
		t.Errorf("unexpected third listing %+v", listings[2])
	}
	if listings[0].RawPrice != "$189.99" {
		t.Errorf("unexpected price %q", listings[0].RawPrice)
	}
	if c.DefaultHelmetType() != catalog.HelmetMini {
		t.Errorf("expected mini default, got %s", c.DefaultHelmetType())
	}
}

func TestPageCollectorProductDataFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageNumber") != "" {
			fmt.Fprint(w, "<html><body></body></html>")
			return
		}
		fmt.Fprint(w, `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"ItemList","itemListElement":[
 {"@type":"ListItem","position":1,"item":{"@type":"Product","name":"Puka Nacua Signed Rams Authentic Helmet","url":"/p/nacua","offers":{"@type":"Offer","price":"899.99"}}}
]}</script></head><body><div class="other-grid"></div></body></html>`)
	}))
	defer srv.Close()

	fcfg := fetcherConfig()
	f, err := fetcher.NewHTTPFetcher(&fcfg, testLogger)
	if err != nil {
		t.Fatalf("fetcher: %v", err)
	}
	defer f.Close()

	c := NewPageCollector(catalog.SourceFanatics, config.SourceConfig{BaseURL: srv.URL, Paths: []string{"/nfl/helmets"}, MaxPages: 5}, f, FanaticsSelectors, testLogger, WithPageParam("pageNumber"))
	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	if listings[0].RawPrice != "899.99" || listings[0].URL != srv.URL+"/p/nacua" {
		t.Errorf("unexpected listing %+v", listings[0])
	}
}

func TestPageCollectorFailedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/down") {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("page") != "" {
			fmt.Fprint(w, radtkePage(nil, ""))
			return
		}
		fmt.Fprint(w, radtkePage([]string{card("Bo Nix Signed Mini Helmet", "$189.99", "/products/nix")}, ""))
	}))
	defer srv.Close()

	fcfg := fetcherConfig()
	f, _ := fetcher.NewHTTPFetcher(&fcfg, testLogger)
	defer f.Close()

	c := NewRadtke(config.SourceConfig{BaseURL: srv.URL, Paths: []string{"/down", "/up"}, MaxPages: 3}, f, testLogger)
	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("a failed page must not fail the run: %v", err)
	}
	if len(listings) != 1 {
		t.Errorf("expected 1 listing from the healthy path, got %d", len(listings))
	}
}

type fakeItems []catalog.Item

func (f fakeItems) ScanItems(ctx context.Context, fn func(page []catalog.Item) error) error {
	return fn(f)
}

const ebayResults = `<html><body><ul>
<li class="s-item"><div class="s-item__title">Shop on eBay</div><span class="s-item__price">$20.00</span></li>
<li class="s-item"><div class="s-item__title">Josh Allen Signed Bills Mini Helmet BAS</div><span class="s-item__price">$100.00</span></li>
<li class="s-item"><div class="s-item__title">Josh Allen Autographed Mini Helmet</div><span class="s-item__price">$300.00</span></li>
<li class="s-card"><div class="s-card__title">Josh Allen Mini Helmet Signed JSA</div><span class="s-card__price">$200.00 to $260.00</span></li>
<li class="s-item"><div class="s-item__title">Josh Allen Signed 8x10 Photo</div><span class="s-item__price">$50.00</span></li>
<li class="s-item"><div class="s-item__title">Josh Allen Signed Mini Helmet</div><span class="s-item__price">Price unavailable</span></li>
</ul></body></html>`

func ebayServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL
		if u := r.URL.Query().Get("url"); u != "" {
			parsed, err := target.Parse(u)
			if err != nil {
				t.Errorf("bad target url %q", u)
			}
			target = parsed
		}
		w.Header().Set("Content-Type", "text/html")
		if strings.Contains(target.Query().Get("_nkw"), "Josh Allen") {
			fmt.Fprint(w, ebayResults)
			return
		}
		fmt.Fprint(w, "<html><body><ul></ul></body></html>")
	}))
}

func ebayCatalog() fakeItems {
	return fakeItems{
		{ID: 1, Name: "Josh Allen Bills Mini Helmet", EbaySearchQuery: "Josh Allen Bills signed mini helmet", IsActive: true},
		{ID: 2, Name: "Nobody Mini Helmet", EbaySearchQuery: "Nobody signed mini helmet", IsActive: true},
		{ID: 3, Name: "Josh Allen Bills Authentic", EbaySearchQuery: "Josh Allen authentic", IsActive: false},
		{ID: 4, Name: "No Query", IsActive: true},
	}
}

func checkEbayListings(t *testing.T, listings []*types.Listing) {
	t.Helper()
	if len(listings) != 1 {
		t.Fatalf("expected 1 priced item, got %d", len(listings))
	}
	l := listings[0]
	if l.HelmetID != 1 || l.Source != "ebay" {
		t.Errorf("unexpected listing %+v", l)
	}
	want := types.PriceStats{Median: 200, Min: 100, Max: 300, Total: 3}
	if l.Stats == nil || *l.Stats != want {
		t.Errorf("expected stats %+v, got %+v", want, l.Stats)
	}
}

func TestEbayCollectorDirect(t *testing.T) {
	srv := ebayServer(t)
	defer srv.Close()

	c := NewEbay(config.SourceConfig{BaseURL: srv.URL}, fetcherConfig(), ebayCatalog(), nil, testLogger)
	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	checkEbayListings(t, listings)
	if !strings.HasPrefix(listings[0].URL, srv.URL+"/sch/i.html?") {
		t.Errorf("unexpected search url %q", listings[0].URL)
	}
}

func TestEbayCollectorDirectCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	c := NewEbay(config.SourceConfig{BaseURL: srv.URL}, fetcherConfig(), ebayCatalog(), nil, testLogger)
	begin := time.Now()
	listings, err := c.Collect(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(listings) != 0 {
		t.Errorf("expected no listings, got %d", len(listings))
	}
	if elapsed := time.Since(begin); elapsed > 5*time.Second {
		t.Errorf("collect waited %s after cancel", elapsed)
	}
}

func TestEbayCollectorCancelledBeforeSearch(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewEbay(config.SourceConfig{BaseURL: srv.URL}, fetcherConfig(), ebayCatalog(), nil, testLogger)
	if _, err := c.search(ctx, SoldSearchURL(srv.URL, "Josh Allen"), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("expected no request after cancel, got %d", n)
	}
}

func TestEbayCollectorViaCrawlService(t *testing.T) {
	srv := ebayServer(t)
	defer srv.Close()

	svc, err := fetcher.NewCrawlService(&config.ScrapingServiceConfig{APIKey: "k", Endpoint: srv.URL}, fetcherConfig().RequestTimeout, testLogger)
	if err != nil {
		t.Fatalf("crawl service: %v", err)
	}

	c := NewEbay(config.SourceConfig{BaseURL: "https://www.ebay.com"}, fetcherConfig(), ebayCatalog(), svc, testLogger)
	listings, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	checkEbayListings(t, listings)
}

func TestSoldSearchURL(t *testing.T) {
	got := SoldSearchURL("https://www.ebay.com/", "Josh Allen signed mini helmet")
	want := "https://www.ebay.com/sch/i.html?LH_Complete=1&LH_Sold=1&_ipg=120&_nkw=Josh+Allen+signed+mini+helmet"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestBuildUnknownCollector(t *testing.T) {
	_, _, err := Build("craigslist", config.DefaultConfig(), nil, testLogger)
	if !errors.Is(err, types.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}

	c, closeFn, err := Build("rsa", config.DefaultConfig(), nil, testLogger)
	if err != nil {
		t.Fatalf("build rsa: %v", err)
	}
	defer closeFn()
	if c.Name() != catalog.SourceRSA {
		t.Errorf("expected rsa collector, got %s", c.Name())
	}
}
