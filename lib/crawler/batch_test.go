package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"skufetch/lib/extract"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// stubTransport serves canned responses keyed by bound URL.
type stubTransport struct {
	mu        sync.Mutex
	responses map[string]Response
	faults    map[string]error
	issued    int
	delay     time.Duration
}

func (s *stubTransport) Issue(ctx context.Context, url string, headers map[string]string) (Response, error) {
	s.mu.Lock()
	s.issued++
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err, ok := s.faults[url]; ok {
		return Response{}, err
	}
	res, ok := s.responses[url]
	if !ok {
		return Response{Status: 404}, nil
	}
	return res, nil
}

func (s *stubTransport) Close() {}

func testTemplate() Template {
	return Template{
		URL:     "https://shop.example.com/api/product/{id}",
		Headers: map[string]string{"Accept": "application/json"},
	}
}

func bodyFor(title string) []byte {
	return []byte(fmt.Sprintf(`{"product": {"title": %q}}`, title))
}

func titleExtractor() extract.Extractor {
	return extract.JSONExtractor{Fields: []extract.FieldSpec{
		extract.Path{Name: "title", Path: "$.product.title"},
	}}
}

func urlFor(id string) string {
	return testTemplate().Bind(id).URL
}

func TestRunPartialFailure(t *testing.T) {
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: bodyFor("first")},
			urlFor("B"): {Status: 404},
			urlFor("C"): {Status: 200, Body: bodyFor("third")},
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
	}

	result := fetcher.Run(context.Background(), []string{"A", "B", "C"})

	require.Len(t, result, 3)
	require.True(t, result[0].Ok())
	require.Equal(t, "http status 404", result[1].Err)
	// the run does not abort after B
	require.True(t, result[2].Ok())
	require.Equal(t, extract.String("third"), result[2].Record.Get("title"))
}

func TestRunTransportFaultIsLocal(t *testing.T) {
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: bodyFor("first")},
			urlFor("C"): {Status: 200, Body: bodyFor("third")},
		},
		faults: map[string]error{
			urlFor("B"): errors.New("connection reset"),
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
	}

	result := fetcher.Run(context.Background(), []string{"A", "B", "C"})

	require.Len(t, result, 3)
	require.Equal(t, "transport: connection reset", result[1].Err)
	require.True(t, result[0].Ok())
	require.True(t, result[2].Ok())
}

func TestRunUnparseableBody(t *testing.T) {
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: []byte("<html>maintenance</html>")},
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
	}

	result := fetcher.Run(context.Background(), []string{"A"})

	require.Len(t, result, 1)
	require.Equal(t, "unparseable body", result[0].Err)
}

func TestRunIdempotence(t *testing.T) {
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: bodyFor("first")},
			urlFor("B"): {Status: 500},
			urlFor("C"): {Status: 200, Body: bodyFor("third")},
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
	}
	identifiers := []string{"A", "B", "C"}

	first := fetcher.Run(context.Background(), identifiers)
	second := fetcher.Run(context.Background(), identifiers)

	diff := cmp.Diff(first, second)
	if diff != "" {
		t.Fatalf("results differ between runs (-first +second):\n%s", diff)
	}
}

func TestRunConcurrentPreservesOrder(t *testing.T) {
	identifiers := make([]string, 50)
	responses := map[string]Response{}
	for i := range identifiers {
		id := fmt.Sprintf("SKU%03d", i)
		identifiers[i] = id
		responses[urlFor(id)] = Response{Status: 200, Body: bodyFor(id)}
	}

	transport := &stubTransport{responses: responses, delay: time.Millisecond}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
		Options:   Options{Concurrency: 8},
	}

	result := fetcher.Run(context.Background(), identifiers)

	require.Len(t, result, len(identifiers))
	for i, id := range identifiers {
		require.Equal(t, id, result[i].Identifier)
		require.True(t, result[i].Ok())
		require.Equal(t, extract.String(id), result[i].Record.Get("title"))
	}
}

func TestRunConcurrentFailureDoesNotCancelOthers(t *testing.T) {
	identifiers := []string{"A", "B", "C", "D"}
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: bodyFor("a")},
			urlFor("C"): {Status: 200, Body: bodyFor("c")},
			urlFor("D"): {Status: 200, Body: bodyFor("d")},
		},
		faults: map[string]error{
			urlFor("B"): errors.New("tls handshake failure"),
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
		Options:   Options{Concurrency: 4},
	}

	result := fetcher.Run(context.Background(), identifiers)

	require.Equal(t, Summary{Attempted: 4, Succeeded: 3, Failed: 1}, result.Summary())
	require.Equal(t, "transport: tls handshake failure", result[1].Err)
}

type countingObserver struct {
	mu   sync.Mutex
	seen []int
}

func (c *countingObserver) Observe(index int, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, index)
}

func TestRunObserverAdvisory(t *testing.T) {
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: bodyFor("a")},
		},
	}
	observer := &countingObserver{}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
		Observer:  observer,
	}

	result := fetcher.Run(context.Background(), []string{"A", "B"})

	require.Len(t, result, 2)
	require.ElementsMatch(t, []int{0, 1}, observer.seen)
}

func TestRunKeepRawBodies(t *testing.T) {
	body := bodyFor("kept")
	transport := &stubTransport{
		responses: map[string]Response{
			urlFor("A"): {Status: 200, Body: body},
		},
	}
	fetcher := Fetcher{
		Template:  testTemplate(),
		Extractor: titleExtractor(),
		Transport: transport,
		Options:   Options{KeepRawBodies: true},
	}

	result := fetcher.Run(context.Background(), []string{"A"})

	require.Len(t, result.RawBodies(), 1)
	require.Equal(t, string(body), string(result[0].Raw))
}

func TestSummaryAndFailures(t *testing.T) {
	result := Result{
		{Identifier: "A"},
		{Identifier: "B", Err: "http status 404"},
		{Identifier: "C"},
	}

	require.Equal(t, Summary{Attempted: 3, Succeeded: 2, Failed: 1}, result.Summary())

	failures := result.Failures()
	require.Len(t, failures, 1)
	require.Equal(t, "B", failures[0].Identifier)
	require.Len(t, result.Records(), 2)
}
