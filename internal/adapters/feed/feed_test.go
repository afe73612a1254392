package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const payload = `[
  {"id": "11571", "title": "ミクの消失", "type": "DX",
   "ds": [7.0, 9.8, 12.9, 14.4], "level": ["7", "9+", "12+", "14"],
   "cids": [1, 2, 3, 4],
   "charts": [{"notes": [1,2,3,4,5], "charter": "-"}, {"notes": [1,2,3,4,5], "charter": "-"},
              {"notes": [1,2,3,4,5], "charter": "x"}, {"notes": [1,2,3,4,5], "charter": "y"}],
   "basic_info": {"title": "ミクの消失", "artist": "cosMo@暴走P", "genre": "niconico", "bpm": 240,
                  "release_date": "", "from": "maimai でらっくす", "is_new": false}},
  {"id": 8, "title": "True Love Song", "type": "SD", "ds": [5.0], "level": ["5"], "charts": [{"notes": [1], "charter": "-"}]},
  {"id": "abc", "title": "bad id"},
  {"id": "9", "title": 42}
]`

func TestDecode(t *testing.T) {
	Convey("Given a feed payload", t, func() {
		songs, skipped, err := Decode(context.Background(), nil, []byte(payload))

		Convey("String and numeric ids decode", func() {
			So(err, ShouldBeNil)
			So(songs, ShouldHaveLength, 2)
			So(songs[0].ID, ShouldEqual, 11571)
			So(songs[0].BasicInfo.BPM, ShouldEqual, 240)
			So(songs[0].Charts[3].Charter, ShouldEqual, "y")
			So(songs[1].ID, ShouldEqual, 8)
		})

		Convey("Broken entries are skipped", func() {
			So(skipped, ShouldEqual, 2)
		})

		Convey("A non-array payload is malformed", func() {
			_, _, err := Decode(context.Background(), nil, []byte(`{"id": 1}`))
			So(errors.Is(err, ErrMalformed), ShouldBeTrue)
		})
	})
}

func newTestClient(t *testing.T, url string, cache *Cache) *Client {
	t.Helper()
	return NewClient(url,
		WithCache(cache),
		WithRetryCount(2),
		WithRetryWait(time.Millisecond, 5*time.Millisecond),
		WithTimeout(2*time.Second),
	)
}

func openCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache", "feed.db"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Fetch(t *testing.T) {
	Convey("Given a feed server", t, func() {
		var calls atomic.Int32
		var failing atomic.Bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if failing.Load() {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(payload))
		}))
		defer srv.Close()
		cache := openCache(t)
		client := newTestClient(t, srv.URL, cache)
		ctx := context.Background()

		Convey("A successful fetch is decoded and cached", func() {
			res, err := client.Fetch(ctx)
			So(err, ShouldBeNil)
			So(res.Source, ShouldEqual, SourceRemote)
			So(res.Songs, ShouldHaveLength, 2)

			cached, _, ok, err := cache.Get()
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(string(cached), ShouldEqual, payload)
		})

		Convey("Server errors are retried then fall back to the cache", func() {
			_, err := client.Fetch(ctx)
			So(err, ShouldBeNil)

			failing.Store(true)
			calls.Store(0)
			res, err := client.Fetch(ctx)
			So(err, ShouldBeNil)
			So(res.Source, ShouldEqual, SourceCache)
			So(res.Songs, ShouldHaveLength, 2)
			So(calls.Load(), ShouldEqual, 3)
		})

		Convey("Without a cached payload the failure is reported", func() {
			failing.Store(true)
			_, err := client.Fetch(ctx)
			So(errors.Is(err, ErrFetch), ShouldBeTrue)
			So(errors.Is(err, ErrNoData), ShouldBeTrue)
		})

		Convey("Without a cache the fetch error is returned as is", func() {
			failing.Store(true)
			bare := newTestClient(t, srv.URL, nil)
			_, err := bare.Fetch(ctx)
			So(errors.Is(err, ErrFetch), ShouldBeTrue)
		})
	})
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, nil).Fetch(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("404 must not be retried, got %d calls", n)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music_data.json")
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}
	res, err := LoadFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if res.Source != SourceFile || len(res.Songs) != 2 || res.Skipped != 2 {
		t.Fatalf("unexpected result: source=%s songs=%d skipped=%d", res.Source, len(res.Songs), res.Skipped)
	}
	if _, err := LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for a missing file, got %v", err)
	}
}
