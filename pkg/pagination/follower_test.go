package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Sternrassler/api2xlsx/pkg/auth"
	"github.com/Sternrassler/api2xlsx/pkg/payload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubFetcher serves canned bodies by URL and records every call.
type stubFetcher struct {
	pages map[string]string
	errs  map[string]error
	delay time.Duration
	calls []string
	creds []auth.Credentials
}

func (s *stubFetcher) Fetch(ctx context.Context, rawURL string, creds auth.Credentials) (payload.Payload, error) {
	s.calls = append(s.calls, rawURL)
	s.creds = append(s.creds, creds)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.errs[rawURL]; ok {
		return payload.Payload{}, err
	}
	body, ok := s.pages[rawURL]
	if !ok {
		return payload.Payload{}, fmt.Errorf("no page %s", rawURL)
	}
	return payload.Decode([]byte(body))
}

func envelope(t *testing.T, body, source string) *payload.Envelope {
	t.Helper()
	p, err := payload.Decode([]byte(body))
	require.NoError(t, err)
	require.Equal(t, payload.KindEnvelope, p.Kind)
	p.Envelope.Source = source
	return p.Envelope
}

func ids(t *testing.T, items []any) []string {
	t.Helper()
	out := make([]string, 0, len(items))
	for _, it := range items {
		obj, ok := it.(*payload.Object)
		require.True(t, ok, "item %v is not an object", it)
		v, _ := obj.Get("id")
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func TestFollow_NoNext(t *testing.T) {
	fetcher := &stubFetcher{}
	first := envelope(t, `{"results":[{"id":1},{"id":2}],"next":null}`, "")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Empty(t, fetcher.calls, "no extra requests expected")
	assert.Equal(t, first.Results, result.Items)
	assert.Equal(t, 1, result.Pages)
	assert.Equal(t, StopComplete, result.Stop)
	assert.False(t, result.Partial())
}

func TestFollow_Concatenates(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"page2": `{"results":[{"id":2}],"next":"page3"}`,
		"page3": `{"results":[{"id":3},{"id":4}],"next":null}`,
	}}
	first := envelope(t, `{"results":[{"id":1}],"next":"page2"}`, "")
	creds := auth.Bearer("tok")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, creds)

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(t, result.Items))
	assert.Equal(t, 3, result.Pages)
	assert.Equal(t, StopComplete, result.Stop)
	assert.Equal(t, []string{"page2", "page3"}, fetcher.calls)
	for _, c := range fetcher.creds {
		assert.Equal(t, creds, c, "every page must reuse the first request's credentials")
	}
}

func TestFollow_ScenarioC(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"page2": `{"results":[{"id":2}],"next":null}`,
	}}
	first := envelope(t, `{"results":[{"id":1}], "next":"page2"}`, "")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Len(t, result.Items, 2)
	assert.Equal(t, []string{"1", "2"}, ids(t, result.Items))
}

func TestFollow_ErrorReturnsPartial(t *testing.T) {
	boom := errors.New("connection reset")
	fetcher := &stubFetcher{
		pages: map[string]string{"page2": `{"results":[{"id":2}],"next":"page3"}`},
		errs:  map[string]error{"page3": boom},
	}
	first := envelope(t, `{"results":[{"id":1}],"next":"page2"}`, "")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Equal(t, []string{"1", "2"}, ids(t, result.Items))
	assert.Equal(t, StopError, result.Stop)
	assert.ErrorIs(t, result.Err, boom)
	assert.True(t, result.Partial())
}

func TestFollow_MissingResultsIsEmptyPage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"page2": `{"detail":"nothing here","next":"page3"}`,
		"page3": `{"results":[{"id":3}]}`,
	}}
	first := envelope(t, `{"results":[{"id":1}],"next":"page2"}`, "")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Equal(t, []string{"1", "3"}, ids(t, result.Items))
	assert.Equal(t, StopComplete, result.Stop)
}

func TestFollow_NonObjectPageStops(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"page2": `[{"id":2}]`}}
	first := envelope(t, `{"results":[{"id":1}],"next":"page2"}`, "")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Equal(t, StopError, result.Stop)
	assert.ErrorIs(t, result.Err, ErrNotEnvelope)
	assert.Len(t, result.Items, 1)
}

func TestFollow_PageLimit(t *testing.T) {
	pages := map[string]string{}
	for i := 2; i <= 50; i++ {
		pages[fmt.Sprintf("p%d", i)] = fmt.Sprintf(`{"results":[{"id":%d}],"next":"p%d"}`, i, i+1)
	}
	fetcher := &stubFetcher{pages: pages}
	first := envelope(t, `{"results":[{"id":1}],"next":"p2"}`, "")

	result := NewFollower(fetcher, Config{MaxPages: 5}).Follow(context.Background(), first, auth.None())

	assert.Equal(t, StopPageLimit, result.Stop)
	assert.Equal(t, 5, result.Pages)
	assert.Len(t, result.Items, 5)
	assert.Len(t, fetcher.calls, 4)
}

func TestFollow_TimeLimit(t *testing.T) {
	pages := map[string]string{}
	for i := 2; i <= 1000; i++ {
		pages[fmt.Sprintf("p%d", i)] = fmt.Sprintf(`{"results":[],"next":"p%d"}`, i+1)
	}
	fetcher := &stubFetcher{pages: pages, delay: 10 * time.Millisecond}
	first := envelope(t, `{"results":[],"next":"p2"}`, "")

	result := NewFollower(fetcher, Config{MaxElapsed: 50 * time.Millisecond}).Follow(context.Background(), first, auth.None())

	assert.Equal(t, StopTimeLimit, result.Stop)
	assert.Less(t, result.Pages, 20)
}

func TestFollow_CycleDetected(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://api.test/items?page=2": `{"results":[{"id":2}],"next":"https://api.test/items?page=1"}`,
	}}
	first := envelope(t, `{"results":[{"id":1}],"next":"https://api.test/items?page=2"}`, "https://api.test/items?page=1")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	assert.Equal(t, StopCycle, result.Stop)
	assert.Equal(t, []string{"1", "2"}, ids(t, result.Items))
	assert.Len(t, fetcher.calls, 1)
}

func TestFollow_RelativeNext(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://api.test/v1/items?page=2": `{"results":[{"id":2}],"next":"?page=3"}`,
		"https://api.test/v1/items?page=3": `{"results":[{"id":3}],"next":null}`,
	}}
	first := envelope(t, `{"results":[{"id":1}],"next":"/v1/items?page=2"}`, "https://api.test/v1/items")

	result := NewFollower(fetcher, DefaultConfig()).Follow(context.Background(), first, auth.None())

	require.Equal(t, StopComplete, result.Stop, "err: %v", result.Err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(t, result.Items))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		next string
		want string
	}{
		{name: "no base", base: "", next: "page2", want: "page2"},
		{name: "relative base", base: "page2", next: "page3", want: "page3"},
		{name: "relative base with path", base: "v1/items?page=2", next: "?page=3", want: "?page=3"},
		{name: "absolute next", base: "page2", next: "https://api.test/p3", want: "https://api.test/p3"},
		{name: "absolute base", base: "https://api.test/v1/items?page=1", next: "?page=2", want: "https://api.test/v1/items?page=2"},
		{name: "absolute base, rooted next", base: "https://api.test/v1/items", next: "/v2/items", want: "https://api.test/v2/items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolve(tt.base, tt.next)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFollow_ContextCancelled(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{"page2": `{"results":[]}`}}
	first := envelope(t, `{"results":[{"id":1}],"next":"page2"}`, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewFollower(fetcher, DefaultConfig()).Follow(ctx, first, auth.None())

	assert.Equal(t, StopError, result.Stop)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Empty(t, fetcher.calls)
	assert.Len(t, result.Items, 1)
}

func TestNewFollower_Defaults(t *testing.T) {
	f := NewFollower(&stubFetcher{}, Config{})
	assert.Equal(t, DefaultConfig(), f.config)
}
