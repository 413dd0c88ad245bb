package generator

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/PRASANNAPATIL12/weddingcard/internal/metrics"
	"github.com/PRASANNAPATIL12/weddingcard/internal/qrrequest"
	"github.com/PRASANNAPATIL12/weddingcard/internal/style"
)

// gatedFetcher blocks each fetch until the gate for its color is opened.
// When ignoreCtx is set it keeps waiting after cancellation, the way a late
// network completion would.
type gatedFetcher struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	errs      map[string]error
	ignoreCtx bool
}

func newGatedFetcher(ignoreCtx bool) *gatedFetcher {
	return &gatedFetcher{
		gates:     make(map[string]chan struct{}),
		errs:      make(map[string]error),
		ignoreCtx: ignoreCtx,
	}
}

func (f *gatedFetcher) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[key]
	if !ok {
		ch = make(chan struct{})
		f.gates[key] = ch
	}
	return ch
}

func (f *gatedFetcher) open(key string) { close(f.gate(key)) }

func (f *gatedFetcher) fail(key string, err error) {
	f.mu.Lock()
	f.errs[key] = err
	f.mu.Unlock()
	f.open(key)
}

func (f *gatedFetcher) Fetch(ctx context.Context, d qrrequest.Descriptor) (image.Image, error) {
	key, _ := d.Get("color")
	gate := f.gate(key)
	if f.ignoreCtx {
		<-gate
	} else {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	err := f.errs[key]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(0, 0, color.RGBA{0, 0, 0, 255})
	return img, nil
}

func sel(fg style.Color) style.Selection {
	return style.Selection{Shape: style.ShapeSquare, Foreground: fg, Background: style.White}
}

func newGenerator(f Fetcher) *Generator {
	return New(Options{Fetcher: f, Metrics: metrics.New()})
}

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGenerateComposites(t *testing.T) {
	f := newGatedFetcher(false)
	f.open("111111")
	g := newGenerator(f)
	defer g.Close()

	res, err := g.Generate(awaitCtx(t), "https://x/share/abc", sel("#111111"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != 1 || len(res.PNG) == 0 || res.Target != "https://x/share/abc" {
		t.Fatalf("result = %+v", res)
	}
	st := g.Status()
	if st.State != Composited || st.Last == nil || st.Last.Token != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	f := newGatedFetcher(true)
	g := newGenerator(f)
	defer g.Close()
	ctx := awaitCtx(t)

	first, _ := g.Trigger("https://x", sel("#111111"))
	second, _ := g.Trigger("https://x", sel("#222222"))
	if second.Token <= first.Token {
		t.Fatalf("tokens not increasing: %d then %d", first.Token, second.Token)
	}

	f.open("222222")
	res, err := g.Await(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Selection.Foreground != "#222222" {
		t.Fatalf("result selection = %+v", res.Selection)
	}

	// The first cycle completes late, after the newer one.
	f.open("111111")
	if _, err := g.Await(ctx, first); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first await err = %v, want ErrSuperseded", err)
	}
	st := g.Status()
	if st.State != Composited || st.Last.Token != second.Token || st.Last.Selection.Foreground != "#222222" {
		t.Fatalf("stale completion overwrote newer result: %+v", st)
	}
}

func TestTriggerCancelsPreviousFetch(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	defer g.Close()
	ctx := awaitCtx(t)

	first, _ := g.Trigger("https://x", sel("#111111"))
	second, _ := g.Trigger("https://x", sel("#222222"))

	// The first fetch returns on cancellation without its gate being opened.
	if _, err := g.Await(ctx, first); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if st := g.Status(); st.State != Loading || st.Token != second.Token {
		t.Fatalf("status = %+v, want loading for second cycle", st)
	}
	f.open("222222")
	if _, err := g.Await(ctx, second); err != nil {
		t.Fatal(err)
	}
}

func TestFailedCycleKeepsPreviousResult(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	defer g.Close()
	ctx := awaitCtx(t)

	f.open("111111")
	if _, err := g.Generate(ctx, "https://x", sel("#111111")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("connection reset")
	f.fail("222222", boom)
	if _, err := g.Generate(ctx, "https://x", sel("#222222")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	st := g.Status()
	if st.State != Failed || st.Error == "" {
		t.Fatalf("status = %+v", st)
	}
	if st.Last == nil || st.Last.Selection.Foreground != "#111111" {
		t.Fatalf("previous result lost: %+v", st.Last)
	}
}

func TestAwaitRespectsContext(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	defer g.Close()

	ticket, _ := g.Trigger("https://x", sel("#111111"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Await(ctx, ticket); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestCloseStopsTriggers(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	_, _ = g.Trigger("https://x", sel("#111111"))
	g.Close()
	if _, err := g.Trigger("https://x", sel("#111111")); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

func TestRenderLeavesCycleStateAlone(t *testing.T) {
	f := newGatedFetcher(false)
	f.open("333333")
	g := newGenerator(f)
	defer g.Close()

	res, err := g.Render(awaitCtx(t), "https://x", sel("#333333"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.PNG) == 0 {
		t.Fatal("empty PNG")
	}
	if st := g.Status(); st.State != Idle || st.Token != 0 {
		t.Fatalf("status = %+v, want idle", st)
	}
}

func TestSelectionDefault(t *testing.T) {
	g := newGenerator(newGatedFetcher(false))
	defer g.Close()
	def := style.DefaultSelection()
	if got := g.Selection(def); got != def {
		t.Fatalf("got %+v", got)
	}
}

func TestLatestTracksNewestTrigger(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	defer g.Close()

	if _, ok := g.Latest(); ok {
		t.Fatal("Latest reported a ticket before any trigger")
	}
	_, _ = g.Trigger("https://x", sel("#444444"))
	second, _ := g.Trigger("https://x", sel("#555555"))

	latest, ok := g.Latest()
	if !ok || latest.Token != second.Token {
		t.Fatalf("latest = %+v, want token %d", latest, second.Token)
	}
	f.open("555555")
	res, err := g.Await(awaitCtx(t), latest)
	if err != nil {
		t.Fatal(err)
	}
	if res.Selection.Foreground != "#555555" {
		t.Fatalf("selection = %+v", res.Selection)
	}
}

func TestTriggerMergeKeepsConcurrentFieldChanges(t *testing.T) {
	f := newGatedFetcher(false)
	g := newGenerator(f)
	defer g.Close()

	def := style.DefaultSelection()
	const rounds = 50
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, _ = g.TriggerMerge("https://x", def, func(s style.Selection) style.Selection {
				return s.WithForeground("#123456")
			})
		}()
		go func() {
			defer wg.Done()
			_, _, _ = g.TriggerMerge("https://x", def, func(s style.Selection) style.Selection {
				return s.WithBackground("#ABCDEF")
			})
		}()
	}
	wg.Wait()

	got := g.Selection(def)
	if got.Foreground != "#123456" || got.Background != "#ABCDEF" {
		t.Fatalf("selection = %+v, a concurrent change was lost", got)
	}
	if st := g.Status(); st.Token != 2*rounds {
		t.Fatalf("token = %d, want %d", st.Token, 2*rounds)
	}
}

func TestTriggerMergeStartsFromDefault(t *testing.T) {
	f := newGatedFetcher(false)
	f.open("000000")
	g := newGenerator(f)
	defer g.Close()

	tk, sel, err := g.TriggerMerge("https://x", style.DefaultSelection(), func(s style.Selection) style.Selection {
		return s.WithShape(style.ShapeClassy)
	})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Shape != style.ShapeClassy || sel.Foreground != style.Black {
		t.Fatalf("selection = %+v", sel)
	}
	if _, err := g.Await(awaitCtx(t), tk); err != nil {
		t.Fatal(err)
	}
}
