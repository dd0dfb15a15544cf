package resy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{
		APIKey:    "test-key",
		UserAgent: "test-agent",
		BaseURL:   srv.URL,
		Timeout:   5 * time.Second,
	})
}

func TestParseVenueURL(t *testing.T) {
	cases := []struct {
		in        string
		city      string
		slug      string
		wantError bool
	}{
		{in: "https://resy.com/cities/new-york-ny/venues/casa-paco", city: "new-york-ny", slug: "casa-paco"},
		{in: "https://www.resy.com/cities/toronto-on/venues/alo", city: "toronto-on", slug: "alo"},
		{in: "http://resy.com/cities/london/venues/the-barbary?date=2026-09-01&seats=2", city: "london", slug: "the-barbary"},
		{in: "  https://resy.com/cities/austin-tx/venues/suerte  ", city: "austin-tx", slug: "suerte"},
		{in: "https://RESY.com/cities/miami-fl/venues/itamae", city: "miami-fl", slug: "itamae"},
		{in: "https://resy.com:443/cities/chicago-il/venues/oriole", city: "chicago-il", slug: "oriole"},
		{in: "https://resy.com/cities/new-york-ny", wantError: true},
		{in: "https://opentable.com/cities/x/venues/y", wantError: true},
		{in: "https://resy.com.evil.example/cities/x/venues/y", wantError: true},
		{in: "not a url at all", wantError: true},
	}
	for _, tc := range cases {
		city, slug, err := parseVenueURL(tc.in)
		if tc.wantError {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.city, city, tc.in)
		assert.Equal(t, tc.slug, slug, tc.in)
	}
}

func TestResolveVenue(t *testing.T) {
	t.Run("sends slug, location and identity headers", func(t *testing.T) {
		var got *http.Request
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.Clone(context.Background())
			w.Write([]byte(`{"id":{"resy":42},"name":"Casa Paco"}`))
		})

		venue, err := c.ResolveVenue(context.Background(), "run-1", "https://resy.com/cities/new-york-ny/venues/casa-paco")
		require.NoError(t, err)
		assert.Equal(t, 42, venue.ID)
		assert.Equal(t, "Casa Paco", venue.Name)

		require.NotNil(t, got)
		assert.Equal(t, "/3/venue", got.URL.Path)
		assert.Equal(t, "casa-paco", got.URL.Query().Get("url_slug"))
		assert.Equal(t, "new-york-ny", got.URL.Query().Get("location"))
		assert.Equal(t, `ResyAPI api_key="test-key"`, got.Header.Get("authorization"))
		assert.Equal(t, "test-agent", got.Header.Get("user-agent"))
		assert.Equal(t, "https://resy.com", got.Header.Get("origin"))
		assert.Equal(t, "run-1", got.Header.Get("x-task-id"))
	})

	t.Run("bad url never hits the network", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		})
		_, err := c.ResolveVenue(context.Background(), "run-1", "https://example.com/nope")
		require.Error(t, err)
	})

	t.Run("missing id is a decode failure", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"name":"ghost"}`))
		})
		_, err := c.ResolveVenue(context.Background(), "run-1", "https://resy.com/cities/x/venues/y")
		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindDecode, re.Kind)
		assert.False(t, Retryable(err))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Run("primary credentials mint a long-lived token", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/4/auth/password", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "diner@example.com", r.PostForm.Get("email"))
			assert.Equal(t, "hunter2", r.PostForm.Get("password"))
			w.Write([]byte(`{"token":"fresh-tok"}`))
		})

		res, err := c.Authenticate(context.Background(), "run-1", AuthRequest{Email: "diner@example.com", Password: "hunter2"})
		require.NoError(t, err)
		assert.Equal(t, "fresh-tok", res.SessionToken)
		assert.Equal(t, "fresh-tok", res.LongLivedToken)
	})

	t.Run("cached token is validated against the user endpoint", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/2/user", r.URL.Path)
			assert.Equal(t, "cached-tok", r.Header.Get("x-resy-auth-token"))
			assert.Equal(t, "cached-tok", r.Header.Get("x-resy-universal-auth"))
			w.Write([]byte(`{"id":1}`))
		})

		res, err := c.Authenticate(context.Background(), "run-1", AuthRequest{CachedToken: "cached-tok"})
		require.NoError(t, err)
		assert.Equal(t, "cached-tok", res.SessionToken)
		assert.Empty(t, res.LongLivedToken, "validation never mints a fresh credential")
	})

	t.Run("expired token reads as an auth failure", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(statusAuthTimeout)
			w.Write([]byte(`{"message":"token expired"}`))
		})

		_, err := c.Authenticate(context.Background(), "run-1", AuthRequest{CachedToken: "stale"})
		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindAuth, re.Kind)
		assert.Equal(t, statusAuthTimeout, re.Status)
		assert.True(t, IsAuth(err))
		assert.False(t, Retryable(err))
	})

	t.Run("rejected password is an auth failure", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"bad credentials"}`))
		})

		_, err := c.Authenticate(context.Background(), "run-1", AuthRequest{Email: "a", Password: "b"})
		require.True(t, IsAuth(err))
		assert.Contains(t, err.Error(), "bad credentials")
	})

	t.Run("empty token in a 200 is an auth failure", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		})
		_, err := c.Authenticate(context.Background(), "run-1", AuthRequest{Email: "a", Password: "b"})
		assert.True(t, IsAuth(err))
	})
}

func TestFindSlots(t *testing.T) {
	slotPayload := `{
		"results": {"venues": [{"slots": [
			{"date": {"start": "2026-09-01 17:00:00", "end": "2026-09-01 18:30:00"},
			 "config": {"type": "Dining Room", "token": "cfg-early"},
			 "payment": {"is_paid": false}},
			{"date": {"start": "2026-09-01 19:00:00", "end": "2026-09-01 20:30:00"},
			 "config": {"type": "Bar", "token": "cfg-prime"},
			 "payment": {"is_paid": true}}
		]}]}
	}`

	t.Run("parses slots and the request body", func(t *testing.T) {
		var body map[string]any
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/4/find", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			w.Write([]byte(slotPayload))
		})

		q := SlotQuery{VenueID: 42, Day: "2026-09-01", PartySize: 2}
		slots, err := c.FindSlots(context.Background(), "run-1", q, "sess-tok")
		require.NoError(t, err)
		require.Len(t, slots, 2)
		assert.Equal(t, "cfg-early", slots[0].Token)
		assert.Equal(t, "Dining Room", slots[0].Type)
		assert.True(t, slots[1].IsPaid)

		assert.Equal(t, "2026-09-01", body["day"])
		assert.EqualValues(t, 42, body["venue_id"])
		assert.EqualValues(t, 2, body["party_size"])
		assert.EqualValues(t, 0, body["lat"])
		assert.EqualValues(t, 0, body["long"])
	})

	t.Run("applies the time window at the boundary", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(slotPayload))
		})

		q := SlotQuery{VenueID: 42, Day: "2026-09-01", PartySize: 2, TimeStart: "18:00", TimeEnd: "20:00"}
		slots, err := c.FindSlots(context.Background(), "run-1", q, "")
		require.NoError(t, err)
		require.Len(t, slots, 1)
		assert.Equal(t, "cfg-prime", slots[0].Token)
	})

	t.Run("no venues means no slots, not an error", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results":{"venues":[]}}`))
		})
		slots, err := c.FindSlots(context.Background(), "run-1", SlotQuery{VenueID: 42, Day: "2026-09-01", PartySize: 2}, "")
		require.NoError(t, err)
		assert.Empty(t, slots)
	})

	t.Run("server errors are retryable", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := c.FindSlots(context.Background(), "run-1", SlotQuery{VenueID: 42, Day: "2026-09-01", PartySize: 2}, "")
		require.Error(t, err)
		assert.True(t, Retryable(err))
	})
}

func TestPreviewReservation(t *testing.T) {
	t.Run("two-phase details call", func(t *testing.T) {
		var commits []float64
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/3/details", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			commits = append(commits, body["commit"].(float64))
			assert.Equal(t, "cfg-prime", body["config_id"])
			assert.Equal(t, "2026-09-01", body["day"])
			w.Write([]byte(`{
				"book_token": {"value": "bt-123"},
				"user": {"payment_methods": [{"id": 777}, {"id": 888}]}
			}`))
		})

		p, err := c.PreviewReservation(context.Background(), "run-1", "cfg-prime", "2026-09-01", 2, "sess-tok")
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1}, commits)
		assert.Equal(t, "bt-123", p.BookToken)
		require.Len(t, p.PaymentMethods, 2)
		assert.EqualValues(t, 777, p.PaymentMethods[0].ID)
	})

	t.Run("missing book token is a decode failure", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"user":{"payment_methods":[]}}`))
		})
		_, err := c.PreviewReservation(context.Background(), "run-1", "cfg", "2026-09-01", 2, "")
		var re *Error
		require.ErrorAs(t, err, &re)
		assert.Equal(t, KindDecode, re.Kind)
	})
}

func TestCommitBooking(t *testing.T) {
	t.Run("sends the booking form", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/3/book", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "bt-123", r.PostForm.Get("book_token"))
			assert.Equal(t, "resy.com-venue-details", r.PostForm.Get("source_id"))
			assert.Equal(t, "0", r.PostForm.Get("venue_marketing_opt_in"))
			assert.JSONEq(t, `{"id":777}`, r.PostForm.Get("struct_payment_method"))
			w.Write([]byte(`{"resy_token":"rt"}`))
		})
		require.NoError(t, c.CommitBooking(context.Background(), "run-1", "bt-123", 777, "sess-tok"))
	})

	t.Run("omits the payment struct when no method exists", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			_, has := r.PostForm["struct_payment_method"]
			assert.False(t, has)
			w.Write([]byte(`{}`))
		})
		require.NoError(t, c.CommitBooking(context.Background(), "run-1", "bt-123", 0, ""))
	})

	t.Run("upstream rejection surfaces the message", func(t *testing.T) {
		c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"slot already taken"}`))
		})
		err := c.CommitBooking(context.Background(), "run-1", "bt-123", 0, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slot already taken")
	})
}

func TestSearchVenues(t *testing.T) {
	var body map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/venuesearch/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Write([]byte(`{"search":{"hits":[
			{"id":{"resy":42},"name":"Casa Paco","cuisine":["Spanish","Tapas"],"neighborhood":"SoHo","region":"NY"},
			{"id":{},"name":"no-id entries are skipped"}
		]}}`))
	})

	hits, err := c.SearchVenues(context.Background(), "run-1", SearchQuery{
		Query:     "paco",
		Latitude:  40.7128,
		Longitude: -74.0060,
		Day:       "2026-09-01",
		PartySize: 2,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 42, hits[0].VenueID)
	assert.Equal(t, "Spanish", hits[0].Cuisine)
	assert.Equal(t, "SoHo", hits[0].Neighborhood)

	assert.Equal(t, "paco", body["query"])
	assert.EqualValues(t, 5, body["per_page"], "default page size")
	geo := body["geo"].(map[string]any)
	assert.InDelta(t, 40.7128, geo["latitude"], 0.0001)
	sf := body["slot_filter"].(map[string]any)
	assert.Equal(t, "2026-09-01", sf["day"])
	assert.EqualValues(t, 2, sf["party_size"])
}

func TestAvailableDates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4/venue/calendar", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "42", q.Get("venue_id"))
		assert.Equal(t, "2", q.Get("num_seats"))
		assert.Equal(t, "2026-09-01", q.Get("start_date"))
		assert.Equal(t, "2026-09-07", q.Get("end_date"))
		w.Write([]byte(`{"scheduled":[
			{"date":"2026-09-01","inventory":{"reservation":"available"}},
			{"date":"2026-09-02","inventory":{"reservation":"sold-out"}},
			{"date":"2026-09-03","inventory":{"reservation":"available"}},
			{"date":"2026-09-04","inventory":{"reservation":"closed"}}
		]}`))
	})

	dates, err := c.AvailableDates(context.Background(), "run-1", 42, 2, "2026-09-01", "2026-09-07")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-09-01", "2026-09-03"}, dates)
}

func TestTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on
	c := New(Options{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})

	err := c.Ping(context.Background(), "run-1", "tok")
	require.Error(t, err)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindTransport, re.Kind)
	assert.True(t, Retryable(err))
}

func TestRetryablePredicate(t *testing.T) {
	assert.True(t, Retryable(&Error{Kind: KindTransport}))
	assert.True(t, Retryable(&Error{Kind: KindUpstream, Status: 500}))
	assert.False(t, Retryable(&Error{Kind: KindAuth, Status: 401}))
	assert.False(t, Retryable(&Error{Kind: KindDecode}))
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(context.Canceled))
}
