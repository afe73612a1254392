package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/maisearch/internal/adapters/catalog"
	"github.com/okian/maisearch/internal/adapters/feed"
	"github.com/okian/maisearch/internal/adapters/http/api"
	service "github.com/okian/maisearch/internal/app"
	"github.com/okian/maisearch/internal/domain/best"
	"github.com/okian/maisearch/internal/domain/model"
	"github.com/okian/maisearch/internal/domain/rating"
	"github.com/okian/maisearch/internal/domain/search"
	"github.com/okian/maisearch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	songs      map[int]model.Song
	results    []model.Song
	searchErr  error
	lookupErr  error
	refreshErr error
	gotLimit   int
	boardErr   error
}

func (m *mockDependencies) SongByID(_ context.Context, id int) (model.Song, error) {
	if m.lookupErr != nil {
		return model.Song{}, m.lookupErr
	}
	s, ok := m.songs[id]
	if !ok {
		return model.Song{}, fmt.Errorf("%w: %d", service.ErrNotFound, id)
	}
	return s, nil
}

func (m *mockDependencies) SearchTitle(_ context.Context, _ string, limit int) ([]model.Song, error) {
	m.gotLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.results, nil
}

func (m *mockDependencies) Rating(ds, achievement float64) service.RatingResult {
	return service.RatingResult{DS: ds, Achievement: achievement, Rating: rating.Compute(ds, achievement), Rate: rating.RateOf(achievement)}
}

func (m *mockDependencies) BuildBoard(_ context.Context, standard, deluxe []service.ScoreInput) (*best.Board, error) {
	if m.boardErr != nil {
		return nil, m.boardErr
	}
	board, err := best.NewBoard(2, 1)
	if err != nil {
		return nil, err
	}
	for _, in := range standard {
		board.PushStandard(model.Record{Title: in.Title, DS: in.DS, Achievement: in.Achievement, Rating: rating.Compute(in.DS, in.Achievement)})
	}
	for _, in := range deluxe {
		board.PushDeluxe(model.Record{Title: in.Title, DS: in.DS, Achievement: in.Achievement, Rating: rating.Compute(in.DS, in.Achievement)})
	}
	return board, nil
}

func (m *mockDependencies) Refresh(context.Context) (service.RefreshResult, error) {
	if m.refreshErr != nil {
		return service.RefreshResult{}, m.refreshErr
	}
	return service.RefreshResult{Source: feed.SourceRemote, Report: catalog.RebuildReport{Indexed: 2}}, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats(context.Context) map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"songs": 2}}).Register(mux)
	return mux
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{
			songs:   map[int]model.Song{11571: {ID: 11571, Title: "ミクの消失"}},
			results: []model.Song{{ID: 11571, Title: "ミクの消失"}},
		}
		mux := newMux(deps)

		Convey("Health serves Prometheus metrics", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats are JSON", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"songs":2`)
		})

		Convey("Unknown paths are 404", func() {
			w := serve(mux, http.MethodGet, "/unknown", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSongsHandler(t *testing.T) {
	Convey("Given the songs endpoint", t, func() {
		deps := &mockDependencies{songs: map[int]model.Song{11571: {ID: 11571, Title: "ミクの消失"}}}
		mux := newMux(deps)

		Convey("A known id returns the song", func() {
			w := serve(mux, http.MethodGet, "/songs/11571", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var s model.Song
			So(json.Unmarshal(w.Body.Bytes(), &s), ShouldBeNil)
			So(s.Title, ShouldEqual, "ミクの消失")
		})

		Convey("An unknown id is 404", func() {
			w := serve(mux, http.MethodGet, "/songs/1", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})

		Convey("A non-numeric id is 400", func() {
			So(serve(mux, http.MethodGet, "/songs/abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/songs/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/songs/1/2", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unavailable store is 503", func() {
			deps.lookupErr = fmt.Errorf("wrap: %w", catalog.ErrUnavailable)
			So(serve(mux, http.MethodGet, "/songs/11571", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("A malformed record is 500", func() {
			deps.lookupErr = fmt.Errorf("wrap: %w", catalog.ErrMalformed)
			w := serve(mux, http.MethodGet, "/songs/11571", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["code"], ShouldEqual, "malformed_record")
		})

		Convey("Other methods are 404", func() {
			So(serve(mux, http.MethodDelete, "/songs/11571", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSearchHandler(t *testing.T) {
	Convey("Given the search endpoint", t, func() {
		deps := &mockDependencies{results: []model.Song{{ID: 11571, Title: "ミクの消失"}}}
		mux := newMux(deps)

		Convey("Results are returned with the query", func() {
			w := serve(mux, http.MethodGet, "/search?q=%E6%B6%88%E5%A4%B1&limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.gotLimit, ShouldEqual, 2)
			var body struct {
				Query string       `json:"query"`
				Songs []model.Song `json:"songs"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Query, ShouldEqual, "消失")
			So(body.Songs, ShouldHaveLength, 1)
		})

		Convey("A missing limit defers to the service default", func() {
			serve(mux, http.MethodGet, "/search?q=x", "")
			So(deps.gotLimit, ShouldEqual, 0)
		})

		Convey("No match is 200 with an empty list", func() {
			deps.results = nil
			w := serve(mux, http.MethodGet, "/search?q=zzz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"songs":[]`)
		})

		Convey("Bad input is 400", func() {
			So(serve(mux, http.MethodGet, "/search", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/search?q=x&limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/search?q=x&limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Resolver limit errors are 400", func() {
			deps.searchErr = fmt.Errorf("x: %w", search.ErrInvalidLimit)
			So(serve(mux, http.MethodGet, "/search?q=x", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Store failures are 503", func() {
			deps.searchErr = fmt.Errorf("x: %w", catalog.ErrUnavailable)
			So(serve(mux, http.MethodGet, "/search?q=x", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestRatingHandler(t *testing.T) {
	Convey("Given the rating endpoint", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("A valid request is rated", func() {
			w := serve(mux, http.MethodGet, "/rating?ds=14.4&achievement=100.5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var res service.RatingResult
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.Rating, ShouldEqual, 324)
			So(res.Rate, ShouldEqual, rating.RateSSSP)
		})

		Convey("Missing, negative or non-finite inputs are 400", func() {
			for _, q := range []string{"", "?ds=14", "?ds=-1&achievement=99", "?ds=14&achievement=NaN", "?ds=x&achievement=99"} {
				So(serve(mux, http.MethodGet, "/rating"+q, "").Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestBestHandler(t *testing.T) {
	Convey("Given the best endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Scores are ranked into the board", func() {
			body := `{"standard":[{"title":"a","ds":13,"achievements":100.5},{"title":"b","ds":14,"achievements":100.5},{"title":"c","ds":10,"achievements":90}],
			          "deluxe":[{"title":"d","ds":12,"achievements":99}]}`
			w := serve(mux, http.MethodPost, "/best", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			var res struct {
				Standard []model.Record `json:"standard"`
				Deluxe   []model.Record `json:"deluxe"`
				Rating   int            `json:"rating"`
				Plate    int            `json:"plate"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.Standard, ShouldHaveLength, 2)
			So(res.Standard[0].Title, ShouldEqual, "b")
			So(res.Deluxe, ShouldHaveLength, 1)
			So(res.Rating, ShouldEqual, res.Standard[0].Rating+res.Standard[1].Rating+res.Deluxe[0].Rating)
			So(res.Plate, ShouldEqual, rating.PlateOf(res.Rating))
		})

		Convey("Empty submissions produce empty lists", func() {
			w := serve(mux, http.MethodPost, "/best", `{}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"standard":[]`)
		})

		Convey("Malformed bodies are 400", func() {
			So(serve(mux, http.MethodPost, "/best", `{"standard":`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/best", `{"unknown":1}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Invalid scores are 400", func() {
			deps.boardErr = fmt.Errorf("standard[0]: %w", service.ErrInvalidScore)
			So(serve(mux, http.MethodPost, "/best", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("GET is not routed", func() {
			So(serve(mux, http.MethodGet, "/best", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestRefreshHandler(t *testing.T) {
	Convey("Given the refresh endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("A refresh reports the rebuild", func() {
			w := serve(mux, http.MethodPost, "/refresh", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"source":"remote"`)
		})

		Convey("Feed outages are 503", func() {
			deps.refreshErr = fmt.Errorf("refresh: %w", feed.ErrFetch)
			So(serve(mux, http.MethodPost, "/refresh", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("Unexpected failures are 500", func() {
			deps.refreshErr = errors.New("boom")
			So(serve(mux, http.MethodPost, "/refresh", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given a handler behind the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		}), logger.Nop())

		Convey("A missing id is generated", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			id := w.Header().Get(api.RequestIDHeader)
			_, err := uuid.Parse(id)
			So(err, ShouldBeNil)
			So(seen, ShouldEqual, id)
		})

		Convey("A valid incoming id is kept", func() {
			want := uuid.NewString()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, want)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, want)
			So(seen, ShouldEqual, want)
		})

		Convey("A garbage id is replaced", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "not-a-uuid")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotEqual, "not-a-uuid")
		})
	})
}
