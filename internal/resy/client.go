package resy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.resy.com"

// Resy signals an expired auth token with 419.
const statusAuthTimeout = 419

// Client talks to the Resy API directly. It carries the browser-shaped
// header set the platform expects; the auth token is supplied per call so
// one client can serve many runs.
type Client struct {
	rc  *resty.Client
	log *logrus.Entry
}

type Options struct {
	APIKey    string
	UserAgent string
	BaseURL   string // overridable for tests
	Timeout   time.Duration
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 12 * time.Second
	}
	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("user-agent", opts.UserAgent).
		SetHeader("accept", "application/json, text/plain, */*").
		SetHeader("origin", "https://resy.com").
		SetHeader("referrer", "https://resy.com").
		SetHeader("x-origin", "https://resy.com").
		SetHeader("cache-control", "no-cache").
		SetHeader("authorization", fmt.Sprintf(`ResyAPI api_key=%q`, opts.APIKey))
	return &Client{
		rc:  rc,
		log: logrus.WithField("component", "resy"),
	}
}

// req starts a request correlated to one run. token, when present, rides
// on the two auth headers the platform reads.
func (c *Client) req(ctx context.Context, runID, token string) *resty.Request {
	r := c.rc.R().SetContext(ctx).SetHeader("x-task-id", runID)
	if token != "" {
		r.SetHeader("x-resy-auth-token", token)
		r.SetHeader("x-resy-universal-auth", token)
	}
	return r
}

// classify turns a resty outcome into a typed *Error, or nil on success.
func classify(resp *resty.Response, err error, op string) error {
	if err != nil {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("%s: %v", op, err)}
	}
	if resp.IsError() {
		kind := KindUpstream
		if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == statusAuthTimeout {
			kind = KindAuth
		}
		msg := upstreamMessage(resp.Body())
		if msg == "" {
			msg = op + " failed"
		}
		return &Error{Kind: kind, Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

func upstreamMessage(body []byte) string {
	var r struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &r)
	return r.Message
}

var venueURLRe = regexp.MustCompile(`(?i)^https?://(?:www\.)?resy\.com/cities/([^/]+)/venues/([^/?#]+)`)

func isResyHost(host string) bool {
	host = strings.ToLower(host)
	return host == "resy.com" || host == "www.resy.com"
}

// parseVenueURL extracts (citySlug, venueSlug) from a venue URL like
// https://resy.com/cities/toronto-on/venues/casa-paco.
func parseVenueURL(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)
	if m := venueURLRe.FindStringSubmatch(raw); m != nil {
		return m[1], m[2], nil
	}
	if u, err := url.Parse(raw); err == nil && isResyHost(u.Hostname()) {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 4 && parts[0] == "cities" && parts[2] == "venues" {
			return parts[1], parts[3], nil
		}
	}
	return "", "", fmt.Errorf("not a resy venue url: %s", raw)
}

// ResolveVenue looks a venue up by its public URL.
func (c *Client) ResolveVenue(ctx context.Context, runID, rawURL string) (Venue, error) {
	city, slug, err := parseVenueURL(rawURL)
	if err != nil {
		return Venue{}, err
	}
	resp, rerr := c.req(ctx, runID, "").
		SetQueryParam("url_slug", slug).
		SetQueryParam("location", city).
		Get("/3/venue")
	if cerr := classify(resp, rerr, "venue lookup"); cerr != nil {
		return Venue{}, cerr
	}
	var out struct {
		ID struct {
			Resy int `json:"resy"`
		} `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Venue{}, &Error{Kind: KindDecode, Message: "venue lookup: " + err.Error()}
	}
	if out.ID.Resy == 0 {
		return Venue{}, &Error{Kind: KindDecode, Message: "venue lookup did not return an id"}
	}
	c.log.WithFields(logrus.Fields{"run_id": runID, "venue_id": out.ID.Resy}).Debug("venue resolved")
	return Venue{ID: out.ID.Resy, Name: out.Name}, nil
}

// Authenticate exchanges primary credentials for an auth token, or
// validates a cached token. The cached path never yields a fresh
// long-lived token.
func (c *Client) Authenticate(ctx context.Context, runID string, req AuthRequest) (AuthResult, error) {
	if req.CachedToken != "" {
		resp, rerr := c.req(ctx, runID, req.CachedToken).Get("/2/user")
		if cerr := classify(resp, rerr, "token check"); cerr != nil {
			return AuthResult{}, cerr
		}
		return AuthResult{SessionToken: req.CachedToken}, nil
	}
	resp, rerr := c.req(ctx, runID, "").
		SetFormData(map[string]string{"email": req.Email, "password": req.Password}).
		Post("/4/auth/password")
	if cerr := classify(resp, rerr, "login"); cerr != nil {
		return AuthResult{}, cerr
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return AuthResult{}, &Error{Kind: KindDecode, Message: "login: " + err.Error()}
	}
	if out.Token == "" {
		return AuthResult{}, &Error{Kind: KindAuth, Message: "login did not return an auth token"}
	}
	return AuthResult{SessionToken: out.Token, LongLivedToken: out.Token}, nil
}

// FindSlots searches for open slots. An empty result is not an error, it
// means none yet. The optional time window is applied here, at the
// boundary, so the poller upstream only ever sees matching slots.
func (c *Client) FindSlots(ctx context.Context, runID string, q SlotQuery, token string) ([]Slot, error) {
	body := map[string]any{
		"day": q.Day,
		// deprecated but still required by the endpoint
		"lat":        0,
		"long":       0,
		"party_size": q.PartySize,
		"venue_id":   q.VenueID,
	}
	resp, rerr := c.req(ctx, runID, token).SetBody(body).Post("/4/find")
	if cerr := classify(resp, rerr, "slot search"); cerr != nil {
		return nil, cerr
	}
	var out struct {
		Results struct {
			Venues []struct {
				Slots []struct {
					Date struct {
						Start string `json:"start"`
						End   string `json:"end"`
					} `json:"date"`
					Config struct {
						Type  string `json:"type"`
						Token string `json:"token"`
					} `json:"config"`
					Payment struct {
						IsPaid bool `json:"is_paid"`
					} `json:"payment"`
				} `json:"slots"`
			} `json:"venues"`
		} `json:"results"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "slot search: " + err.Error()}
	}
	if len(out.Results.Venues) == 0 {
		return nil, nil
	}
	var slots []Slot
	for _, s := range out.Results.Venues[0].Slots {
		slots = append(slots, Slot{
			Token:  s.Config.Token,
			Type:   s.Config.Type,
			Start:  s.Date.Start,
			End:    s.Date.End,
			IsPaid: s.Payment.IsPaid,
		})
	}
	return filterWindow(slots, q.TimeStart, q.TimeEnd), nil
}

// PreviewReservation holds a slot: a warm-up details call followed by the
// committing one, returning the book token and the payment methods on
// file.
func (c *Client) PreviewReservation(ctx context.Context, runID, configToken, day string, partySize int, token string) (Preview, error) {
	body := map[string]any{
		"commit":     0,
		"config_id":  configToken,
		"day":        day,
		"party_size": partySize,
	}
	resp, rerr := c.req(ctx, runID, token).SetBody(body).Post("/3/details")
	if cerr := classify(resp, rerr, "reservation preview"); cerr != nil {
		return Preview{}, cerr
	}
	body["commit"] = 1
	resp, rerr = c.req(ctx, runID, token).SetBody(body).Post("/3/details")
	if cerr := classify(resp, rerr, "reservation preview"); cerr != nil {
		return Preview{}, cerr
	}
	var out struct {
		BookToken struct {
			Value string `json:"value"`
		} `json:"book_token"`
		User struct {
			PaymentMethods []struct {
				ID int64 `json:"id"`
			} `json:"payment_methods"`
		} `json:"user"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return Preview{}, &Error{Kind: KindDecode, Message: "reservation preview: " + err.Error()}
	}
	if out.BookToken.Value == "" {
		return Preview{}, &Error{Kind: KindDecode, Message: "reservation preview returned no book token"}
	}
	p := Preview{BookToken: out.BookToken.Value}
	for _, pm := range out.User.PaymentMethods {
		p.PaymentMethods = append(p.PaymentMethods, PaymentMethod{ID: pm.ID})
	}
	return p, nil
}

// CommitBooking finalizes the reservation held by a preview.
func (c *Client) CommitBooking(ctx context.Context, runID, bookToken string, paymentMethodID int64, token string) error {
	form := map[string]string{
		"book_token":             bookToken,
		"source_id":              "resy.com-venue-details",
		"venue_marketing_opt_in": "0",
	}
	if paymentMethodID != 0 {
		pb, _ := json.Marshal(struct {
			ID int64 `json:"id"`
		}{ID: paymentMethodID})
		form["struct_payment_method"] = string(pb)
	}
	resp, rerr := c.req(ctx, runID, token).SetFormData(form).Post("/3/book")
	if cerr := classify(resp, rerr, "booking"); cerr != nil {
		return cerr
	}
	c.log.WithField("run_id", runID).Info("reservation committed")
	return nil
}

// SearchVenues runs a text search around a coordinate.
func (c *Client) SearchVenues(ctx context.Context, runID string, q SearchQuery) ([]SearchHit, error) {
	if q.PerPage == 0 {
		q.PerPage = 5
	}
	body := map[string]any{
		"geo":       map[string]float64{"latitude": q.Latitude, "longitude": q.Longitude},
		"highlight": map[string]string{"pre_tag": "<b>", "post_tag": "</b>"},
		"per_page":  q.PerPage,
		"query":     q.Query,
		"types":     []string{"venue", "cuisine"},
	}
	if q.Day != "" {
		sf := map[string]any{"day": q.Day}
		if q.PartySize > 0 {
			sf["party_size"] = q.PartySize
		}
		body["slot_filter"] = sf
	}
	resp, rerr := c.req(ctx, runID, "").SetBody(body).Post("/3/venuesearch/search")
	if cerr := classify(resp, rerr, "venue search"); cerr != nil {
		return nil, cerr
	}
	var out struct {
		Search struct {
			Hits []struct {
				ID struct {
					Resy int `json:"resy"`
				} `json:"id"`
				Name         string   `json:"name"`
				Cuisine      []string `json:"cuisine"`
				Neighborhood string   `json:"neighborhood"`
				Region       string   `json:"region"`
			} `json:"hits"`
		} `json:"search"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "venue search: " + err.Error()}
	}
	var hits []SearchHit
	for _, h := range out.Search.Hits {
		if h.ID.Resy == 0 {
			continue
		}
		hit := SearchHit{
			VenueID:      h.ID.Resy,
			Name:         h.Name,
			Neighborhood: h.Neighborhood,
			Region:       h.Region,
		}
		if len(h.Cuisine) > 0 {
			hit.Cuisine = h.Cuisine[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// AvailableDates lists dates with open inventory between startDate and
// endDate inclusive.
func (c *Client) AvailableDates(ctx context.Context, runID string, venueID, partySize int, startDate, endDate string) ([]string, error) {
	resp, rerr := c.req(ctx, runID, "").
		SetQueryParams(map[string]string{
			"venue_id":   strconv.Itoa(venueID),
			"num_seats":  strconv.Itoa(partySize),
			"start_date": startDate,
			"end_date":   endDate,
		}).
		Get("/4/venue/calendar")
	if cerr := classify(resp, rerr, "calendar"); cerr != nil {
		return nil, cerr
	}
	var out struct {
		Scheduled []struct {
			Date      string `json:"date"`
			Inventory struct {
				Reservation string `json:"reservation"`
			} `json:"inventory"`
		} `json:"scheduled"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &Error{Kind: KindDecode, Message: "calendar: " + err.Error()}
	}
	var dates []string
	for _, d := range out.Scheduled {
		if d.Inventory.Reservation == "available" {
			dates = append(dates, d.Date)
		}
	}
	return dates, nil
}

// Ping verifies the token against the user endpoint.
func (c *Client) Ping(ctx context.Context, runID, token string) error {
	resp, rerr := c.req(ctx, runID, token).Get("/2/user")
	return classify(resp, rerr, "ping")
}
