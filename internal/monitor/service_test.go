package monitor_test

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/site-guard/internal/check"
	"github.com/angeloszaimis/site-guard/internal/content"
	"github.com/angeloszaimis/site-guard/internal/monitor"
)

// fakeChecker routes every check through a single function so each test can
// script per-site behavior.
type fakeChecker struct {
	fn func(ctx context.Context, site *check.Site) (*check.Result, error)
}

func (f *fakeChecker) CheckSite(ctx context.Context, site *check.Site) (*check.Result, error) {
	return f.fn(ctx, site)
}

// fakeSink collects recorded results in memory and can be told to fail.
type fakeSink struct {
	mu      sync.Mutex
	records []*check.Result
	err     error
}

func (f *fakeSink) Record(result *check.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, result)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) recorded() []*check.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*check.Result(nil), f.records...)
}

func makeSite(name string) *check.Site {
	target, err := url.Parse("https://" + name + ".example.com")
	Expect(err).NotTo(HaveOccurred())

	req, err := content.New("ok", false, true)
	Expect(err).NotTo(HaveOccurred())

	site, err := check.NewSite(name, target, time.Second, true, []*content.Requirement{req}, nil)
	Expect(err).NotTo(HaveOccurred())
	return site
}

func successResult(site *check.Site) *check.Result {
	ms := int64(5)
	return &check.Result{
		Name:           site.Name(),
		URL:            site.URL().String(),
		Status:         check.StatusSuccess,
		ResponseTimeMs: &ms,
		Timestamp:      time.Now().UTC(),
	}
}

var _ = Describe("Service.RunRound", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, nil))
	})

	collect := func(out <-chan *check.Result) []*check.Result {
		var results []*check.Result
		for result := range out {
			results = append(results, result)
		}
		return results
	}

	It("should yield one result per site, in completion order", func() {
		delays := map[string]time.Duration{
			"a": 60 * time.Millisecond,
			"b": 30 * time.Millisecond,
			"c": 5 * time.Millisecond,
		}
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			time.Sleep(delays[site.Name()])
			return successResult(site), nil
		}}
		resultSink := &fakeSink{}
		service := monitor.NewService(checker, resultSink, nil, log)

		sites := []*check.Site{makeSite("a"), makeSite("b"), makeSite("c")}
		results := collect(service.RunRound(context.Background(), sites))

		Expect(results).To(HaveLen(3))
		Expect(results[0].Name).To(Equal("c"))
		Expect(results[1].Name).To(Equal("b"))
		Expect(results[2].Name).To(Equal("a"))
	})

	It("should close the channel immediately for an empty site list", func() {
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			Fail("checker must not be called")
			return nil, nil
		}}
		service := monitor.NewService(checker, &fakeSink{}, nil, log)

		results := collect(service.RunRound(context.Background(), nil))
		Expect(results).To(BeEmpty())
	})

	It("should record every result in the sink before yielding it", func() {
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			return successResult(site), nil
		}}
		resultSink := &fakeSink{}
		service := monitor.NewService(checker, resultSink, nil, log)

		sites := []*check.Site{makeSite("a"), makeSite("b")}
		for result := range service.RunRound(context.Background(), sites) {
			Expect(resultSink.recorded()).To(ContainElement(result))
		}
		Expect(resultSink.recorded()).To(HaveLen(2))
	})

	It("should keep yielding results when the sink fails", func() {
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			return successResult(site), nil
		}}
		resultSink := &fakeSink{err: errors.New("disk full")}
		service := monitor.NewService(checker, resultSink, nil, log)

		sites := []*check.Site{makeSite("a"), makeSite("b")}
		results := collect(service.RunRound(context.Background(), sites))
		Expect(results).To(HaveLen(2))
	})

	It("should skip a site whose check fails unexpectedly", func() {
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			if site.Name() == "b" {
				return nil, errors.New("boom")
			}
			return successResult(site), nil
		}}
		service := monitor.NewService(checker, &fakeSink{}, nil, log)

		sites := []*check.Site{makeSite("a"), makeSite("b"), makeSite("c")}
		results := collect(service.RunRound(context.Background(), sites))

		Expect(results).To(HaveLen(2))
		for _, result := range results {
			Expect(result.Name).NotTo(Equal("b"))
		}
	})

	It("should survive a panicking check and yield the rest", func() {
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			if site.Name() == "b" {
				panic("checker bug")
			}
			return successResult(site), nil
		}}
		service := monitor.NewService(checker, &fakeSink{}, nil, log)

		sites := []*check.Site{makeSite("a"), makeSite("b"), makeSite("c")}
		results := collect(service.RunRound(context.Background(), sites))
		Expect(results).To(HaveLen(2))
	})

	It("should yield nothing after cancellation and still close the channel", func() {
		started := make(chan struct{}, 5)
		checker := &fakeChecker{fn: func(ctx context.Context, site *check.Site) (*check.Result, error) {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		resultSink := &fakeSink{}
		service := monitor.NewService(checker, resultSink, nil, log)

		sites := []*check.Site{
			makeSite("a"), makeSite("b"), makeSite("c"), makeSite("d"), makeSite("e"),
		}

		ctx, cancel := context.WithCancel(context.Background())
		out := service.RunRound(ctx, sites)

		for i := 0; i < len(sites); i++ {
			Eventually(started).Should(Receive())
		}
		cancel()

		// Channel closure is the drain acknowledgment.
		Eventually(out, time.Second).Should(BeClosed())

		var leaked []*check.Result
		for result := range out {
			leaked = append(leaked, result)
		}
		Expect(leaked).To(BeEmpty())
		Expect(resultSink.recorded()).To(BeEmpty())
	})
})
