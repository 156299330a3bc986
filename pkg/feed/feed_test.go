package feed

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandscraper/internal/testsite"
	"brandscraper/pkg/client"
	"brandscraper/pkg/config"
	errs "brandscraper/pkg/errors"
	"brandscraper/pkg/logger"
	"brandscraper/pkg/models"
	"brandscraper/pkg/pagination"
)

func newSource(site *testsite.Server, log logger.Logger) *Source {
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = site.URL()
	return NewSource(client.New(5*time.Second, log), site.URL(), client.AuthHeaders(cfg), log)
}

func TestCollectStopsOnNotFound(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.SetTestimonials(1,
		testsite.Testimonial{Text: "first", Author: "ann"},
		testsite.Testimonial{Text: "second", Author: "bob"},
	)

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Equal(t, []models.TestimonialRecord{
		{Text: "first", Author: "ann"},
		{Text: "second", Author: "bob"},
	}, res.Records)
	assert.Equal(t, pagination.TerminationEndOfData, res.Termination)
	assert.Contains(t, res.Reason, "status 404")
	assert.Equal(t, 2, res.Pages)
}

func TestCollectSendsAuthHeaders(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.Seed()

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})
	require.NoError(t, err)
	assert.Len(t, res.Records, testsite.SeedTestimonials)

	reqs := site.RequestsTo("/api/testimonials")
	require.NotEmpty(t, reqs)
	assert.Equal(t, testsite.DefaultToken, reqs[0].Header.Get("x-secret-token"))
	assert.Equal(t, site.URL()+"/testimonials", reqs[0].Header.Get("Referer"))
}

func TestCollectWrongTokenYieldsNothing(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.Seed()
	site.SetToken("rotated")

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Contains(t, res.Reason, "status 401")
}

func TestCollectStopsOnBlankBody(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.SetTestimonials(1, testsite.Testimonial{Text: "only", Author: "x"})
	site.SetFeedBody(2, "  \n\t ")

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Contains(t, res.Reason, "empty body")
}

func TestCollectStopsOnPageWithoutTestimonials(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.SetTestimonials(1, testsite.Testimonial{Text: "only", Author: "x"})
	site.SetFeedBody(2, "<div class=\"pagination\">end</div>")

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Contains(t, res.Reason, "no testimonials")
}

func TestCollectPageLimit(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	for p := 1; p <= 10; p++ {
		site.SetTestimonials(p, testsite.Testimonial{Text: "again", Author: "loop"})
	}

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log, MaxPages: 3})

	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, pagination.TerminationPageLimit, res.Termination)
	assert.NotEmpty(t, log.GetMessagesByLevel("WARN"))
}

func TestCollectTransportFailure(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.SetTestimonials(1, testsite.Testimonial{Text: "kept", Author: "x"})
	site.SetTestimonials(2, testsite.Testimonial{Text: "never", Author: "y"})

	log := logger.NewTestLogger()
	src := newSource(site, log)
	src.baseURL = "http://127.0.0.1:1"

	res, err := Collect(context.Background(), src, pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Equal(t, pagination.TerminationFailed, res.Termination)
	assert.True(t, errs.IsType(res.Err, errs.ErrorTypeTransport))
}

func TestParseTestimonialDefaultsAuthor(t *testing.T) {
	html := `
	<div class="testimonial"><p class="text"> no widget </p></div>
	<div class="testimonial"><identicon-svg></identicon-svg><p class="text">widget without name</p></div>
	<div class="testimonial"><identicon-svg username="kim"></identicon-svg></div>`

	got, err := Parse([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, []models.TestimonialRecord{
		{Text: "no widget", Author: models.DefaultAuthor},
		{Text: "widget without name", Author: models.DefaultAuthor},
		{Text: "", Author: "kim"},
	}, got)
}

func TestParseTestimonialUnescapesText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div class="testimonial"><p class="text">Fish &amp; chips &lt;3</p></div>`))
	require.NoError(t, err)

	got := ParseTestimonial(doc.Find(".testimonial"))
	assert.Equal(t, "Fish & chips <3", got.Text)
}

func TestSourceDoesNotRequestAfterNonSuccess(t *testing.T) {
	site := testsite.New()
	defer site.Close()
	site.SetTestimonials(1, testsite.Testimonial{Text: "a", Author: "b"})
	site.SetStatus("/api/testimonials?page=2", http.StatusInternalServerError)
	site.SetTestimonials(3, testsite.Testimonial{Text: "unreachable", Author: "c"})

	log := logger.NewTestLogger()
	res, err := Collect(context.Background(), newSource(site, log), pagination.Options{Logger: log})

	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
	assert.Len(t, site.RequestsTo("/api/testimonials"), 2)
}
