package extract

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/imaging"
	"github.com/joseph-ayodele/finextract/internal/ocr"
	"github.com/joseph-ayodele/finextract/internal/pdftext"
)

const bankText = "Statement of account\nAccount No: 123456789012\nClosing Balance: Rs. 4500.00"

type stageLog struct {
	mu    sync.Mutex
	order []string
}

func (l *stageLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, s)
}

func (l *stageLog) stages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type fakeDecoder struct {
	log *stageLog
	err error
}

func (d fakeDecoder) Decode(ctx context.Context, data []byte) (image.Image, error) {
	d.log.add("decode")
	if d.err != nil {
		return nil, d.err
	}
	return image.NewGray(image.Rect(0, 0, 10, 10)), nil
}

type fakePreprocessor struct {
	log      *stageLog
	fellBack bool
}

func (p fakePreprocessor) Process(ctx context.Context, img image.Image) (image.Image, imaging.Report) {
	p.log.add("preprocess")
	return img, imaging.Report{FellBack: p.fellBack}
}

type fakeRecognizer struct {
	log  *stageLog
	res  ocr.Result
	err  error
	hook func()
}

func (r fakeRecognizer) Recognize(ctx context.Context, img image.Image) (ocr.Result, error) {
	r.log.add("ocr")
	if r.hook != nil {
		r.hook()
	}
	return r.res, r.err
}

type fakeHEIC struct {
	log *stageLog
}

func (h fakeHEIC) ConvertToPNG(ctx context.Context, data []byte) ([]byte, error) {
	h.log.add("heic")
	return []byte("png"), nil
}

type pageSource struct {
	log  *stageLog
	text string
}

func (s pageSource) Pages(ctx context.Context, data []byte) ([]pdftext.Page, error) {
	s.log.add("pdf")
	return []pdftext.Page{{Number: 1, Text: s.text}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher(log *stageLog, rec fakeRecognizer, opts ...Option) *Dispatcher {
	rec.log = log
	svc := Services{
		Decoder:      fakeDecoder{log: log},
		Preprocessor: fakePreprocessor{log: log},
		OCR:          rec,
		PDF:          pdftext.NewExtractor(pageSource{log: log, text: bankText}, quietLogger()),
	}
	return NewDispatcher(svc, quietLogger(), opts...)
}

func TestPDFPathSkipsImageStages(t *testing.T) {
	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{})

	res, err := d.Extract(context.Background(), Input{Name: "s.pdf", MediaType: constants.MediaTypePDF, Data: []byte("%PDF-1.7")})
	require.NoError(t, err)

	assert.Equal(t, []string{"pdf"}, log.stages())
	assert.Equal(t, PathPDFText, res.Path)
	assert.Equal(t, constants.BankStatement, res.Annotated.Kind)
	assert.Contains(t, res.Text(), "ACCOUNT_NUMBER: ")
	assert.Contains(t, res.Text(), "CLOSING_BALANCE: ")
	assert.Greater(t, res.Confidence, LowTextConfidence)
	assert.False(t, res.LowQuality)
	assert.Equal(t, 1, res.Pages)
}

func TestImagePathRunsStagesInOrder(t *testing.T) {
	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{res: ocr.Result{Text: "Rs. 1,200.00 on 01 / 02 / 2024", Confidence: 72}})

	res, err := d.Extract(context.Background(), Input{Name: "scan.png", MediaType: "image/png", Data: []byte{1}})
	require.NoError(t, err)

	assert.Equal(t, []string{"decode", "preprocess", "ocr"}, log.stages())
	assert.Equal(t, PathImageOCR, res.Path)
	assert.Equal(t, 72.0, res.Confidence)
	assert.Contains(t, res.Annotated.Body, "₹1,200.00")
	assert.Contains(t, res.Annotated.Body, "01/02/2024")
	assert.Empty(t, res.Warnings)
}

func TestImagePathCarriesLowQuality(t *testing.T) {
	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{res: ocr.Result{Text: "blurry", Confidence: 21, LowQuality: true}})

	res, err := d.Extract(context.Background(), Input{MediaType: "image/jpeg", Data: []byte{1}})
	require.NoError(t, err)
	assert.True(t, res.LowQuality)
	assert.Equal(t, constants.Unknown, res.Annotated.Kind)
}

func TestMediaTypeParametersAreIgnored(t *testing.T) {
	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{res: ocr.Result{Text: "x"}})

	res, err := d.Extract(context.Background(), Input{MediaType: "Image/PNG; name=scan.png", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, PathImageOCR, res.Path)
}

func TestRejectsBeforeAnyWork(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		code string
	}{
		{"unsupported type", Input{MediaType: "text/plain", Data: []byte("hi")}, common.CodeUnsupportedFormat},
		{"no type", Input{Data: []byte("hi")}, common.CodeUnsupportedFormat},
		{"empty image", Input{MediaType: "image/png"}, common.CodeInvalidInput},
		{"empty pdf", Input{MediaType: constants.MediaTypePDF, Data: []byte{}}, common.CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := &stageLog{}
			d := newTestDispatcher(log, fakeRecognizer{})

			_, err := d.Extract(context.Background(), tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.code, common.CodeOf(err))
			assert.True(t, common.IsRejected(err))
			assert.Empty(t, log.stages())
		})
	}
}

func TestUnsupportedMessage(t *testing.T) {
	d := newTestDispatcher(&stageLog{}, fakeRecognizer{})
	_, err := d.Extract(context.Background(), Input{MediaType: "application/zip", Data: []byte{1}})

	var ae *common.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Message, "Unsupported file type")
}

func TestMaxBytes(t *testing.T) {
	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{}, WithMaxBytes(4))

	_, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte("12345")})
	assert.Equal(t, common.CodeInvalidInput, common.CodeOf(err))
	assert.Empty(t, log.stages())
}

func TestDefaultMaxBytesIsTenMiB(t *testing.T) {
	assert.Equal(t, 10*1024*1024, DefaultMaxBytes)

	log := &stageLog{}
	d := newTestDispatcher(log, fakeRecognizer{})
	_, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: make([]byte, DefaultMaxBytes+1)})
	assert.Equal(t, common.CodeInvalidInput, common.CodeOf(err))
	assert.Contains(t, common.MessageOf(err), "must be at most 10485760 bytes")
	assert.Empty(t, log.stages())
}

func TestDecodeFailure(t *testing.T) {
	log := &stageLog{}
	d := NewDispatcher(Services{
		Decoder:      fakeDecoder{log: log, err: errors.New("bad header")},
		Preprocessor: fakePreprocessor{log: log},
		OCR:          fakeRecognizer{log: log},
	}, quietLogger())

	_, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte{1}})
	assert.Equal(t, common.CodeDecodeFailed, common.CodeOf(err))
	assert.False(t, common.IsRejected(err))
	assert.Equal(t, []string{"decode"}, log.stages())
}

func TestOCRErrors(t *testing.T) {
	t.Run("untyped is wrapped", func(t *testing.T) {
		cause := errors.New("engine crashed")
		d := newTestDispatcher(&stageLog{}, fakeRecognizer{err: cause})
		_, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte{1}})
		assert.Equal(t, common.CodeOCRFailed, common.CodeOf(err))
		assert.ErrorIs(t, err, cause)
	})
	t.Run("typed passes through", func(t *testing.T) {
		d := newTestDispatcher(&stageLog{}, fakeRecognizer{err: common.LibraryNotReadyError("tesseract", nil)})
		_, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte{1}})
		assert.Equal(t, common.CodeLibraryNotReady, common.CodeOf(err))
	})
}

func TestPreprocessFallbackIsAWarning(t *testing.T) {
	log := &stageLog{}
	d := NewDispatcher(Services{
		Decoder:      fakeDecoder{log: log},
		Preprocessor: fakePreprocessor{log: log, fellBack: true},
		OCR:          fakeRecognizer{log: log, res: ocr.Result{Text: "ok", Confidence: 65}},
	}, quietLogger())

	res, err := d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte{1}})
	require.NoError(t, err)
	assert.Equal(t, []string{WarnPreprocessFallback}, res.Warnings)
	assert.Equal(t, []string{"decode", "preprocess", "ocr"}, log.stages())
}

func TestCancellation(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		log := &stageLog{}
		d := newTestDispatcher(log, fakeRecognizer{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := d.Extract(ctx, Input{MediaType: "image/png", Data: []byte{1}})
		assert.Equal(t, common.CodeCancelled, common.CodeOf(err))
		assert.Empty(t, log.stages())
	})
	t.Run("during recognition", func(t *testing.T) {
		log := &stageLog{}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		d := newTestDispatcher(log, fakeRecognizer{res: ocr.Result{Text: "x"}, hook: cancel})

		_, err := d.Extract(ctx, Input{MediaType: "image/png", Data: []byte{1}})
		assert.Equal(t, common.CodeCancelled, common.CodeOf(err))
	})
}

func TestHEIC(t *testing.T) {
	t.Run("no converter", func(t *testing.T) {
		log := &stageLog{}
		d := newTestDispatcher(log, fakeRecognizer{})
		_, err := d.Extract(context.Background(), Input{MediaType: "image/heic", Data: []byte{1}})
		assert.Equal(t, common.CodeLibraryNotReady, common.CodeOf(err))
		assert.Empty(t, log.stages())
	})
	t.Run("converted before decode", func(t *testing.T) {
		log := &stageLog{}
		d := NewDispatcher(Services{
			Decoder:      fakeDecoder{log: log},
			Preprocessor: fakePreprocessor{log: log},
			OCR:          fakeRecognizer{log: log},
			HEIC:         fakeHEIC{log: log},
		}, quietLogger())
		_, err := d.Extract(context.Background(), Input{MediaType: "image/heif", Data: []byte{1}})
		require.NoError(t, err)
		assert.Equal(t, []string{"heic", "decode", "preprocess", "ocr"}, log.stages())
	})
}

func TestObserverSeesEveryCall(t *testing.T) {
	var seen []string
	d := newTestDispatcher(&stageLog{}, fakeRecognizer{res: ocr.Result{Text: "x"}},
		WithObserver(func(in Input, res Result, err error) {
			seen = append(seen, common.CodeOf(err)+"|"+res.Path)
		}))

	_, _ = d.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte{1}})
	_, _ = d.Extract(context.Background(), Input{MediaType: "text/csv", Data: []byte{1}})

	assert.Equal(t, []string{"|" + PathImageOCR, common.CodeUnsupportedFormat + "|"}, seen)
}

type countingExtractor struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (c *countingExtractor) Extract(ctx context.Context, in Input) (Result, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if c.err != nil {
		return Result{}, c.err
	}
	return Result{Path: PathPDFText, Warnings: []string{"w"}}, nil
}

func TestCachedDispatcherHitsOnSameContent(t *testing.T) {
	next := &countingExtractor{}
	c := NewCachedDispatcher(next, time.Minute, 16, quietLogger())
	defer c.Stop()

	in := Input{Name: "a.pdf", MediaType: constants.MediaTypePDF, Data: []byte("%PDF")}
	first, err := c.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	in.Name = "renamed.pdf"
	second, err := c.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.EqualValues(t, 1, next.calls.Load())

	second.Warnings[0] = "mutated"
	third, _ := c.Extract(context.Background(), in)
	assert.Equal(t, []string{"w"}, third.Warnings)

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCachedDispatcherKeysOnMediaType(t *testing.T) {
	next := &countingExtractor{}
	c := NewCachedDispatcher(next, time.Minute, 0, quietLogger())
	defer c.Stop()

	_, _ = c.Extract(context.Background(), Input{MediaType: "image/png", Data: []byte("same")})
	_, _ = c.Extract(context.Background(), Input{MediaType: "image/jpeg", Data: []byte("same")})
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedDispatcherDoesNotCacheErrors(t *testing.T) {
	next := &countingExtractor{err: common.OCRError(errors.New("boom"))}
	c := NewCachedDispatcher(next, time.Minute, 0, quietLogger())
	defer c.Stop()

	in := Input{MediaType: "image/png", Data: []byte{1}}
	_, err := c.Extract(context.Background(), in)
	require.Error(t, err)
	_, err = c.Extract(context.Background(), in)
	require.Error(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCachedDispatcherCollapsesConcurrentUploads(t *testing.T) {
	next := &countingExtractor{release: make(chan struct{})}
	c := NewCachedDispatcher(next, time.Minute, 0, quietLogger())
	defer c.Stop()

	in := Input{MediaType: constants.MediaTypePDF, Data: []byte("%PDF-same")}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Extract(context.Background(), in)
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(next.release)
	wg.Wait()

	assert.EqualValues(t, 1, next.calls.Load())
}

func TestCachedDispatcherLeaderCancelDoesNotFailFollowers(t *testing.T) {
	next := &countingExtractor{release: make(chan struct{})}
	c := NewCachedDispatcher(next, time.Minute, 0, quietLogger())
	defer c.Stop()

	in := Input{MediaType: constants.MediaTypePDF, Data: []byte("%PDF-shared")}
	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := c.Extract(leaderCtx, in)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		res Result
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		res, err := c.Extract(context.Background(), in)
		follower <- outcome{res, err}
	}()

	cancelLeader()
	select {
	case err := <-leaderErr:
		assert.Equal(t, common.CodeCancelled, common.CodeOf(err))
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(next.release)
	select {
	case out := <-follower:
		require.NoError(t, out.err)
		assert.Equal(t, PathPDFText, out.res.Path)
	case <-time.After(time.Second):
		t.Fatal("follower did not return")
	}
	assert.EqualValues(t, 1, next.calls.Load())

	// The shared run completed, so its result is cached.
	res, err := c.Extract(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Cached)
}

func TestTextConfidence(t *testing.T) {
	assert.Zero(t, TextConfidence("  \n"))
	assert.Less(t, TextConfidence("hello"), LowTextConfidence)

	rich := "Statement period 01/02/2024 to 29/02/2024. Opening balance ₹1,200.00, closing balance ₹4,500.00 " +
		"with deposits and withdrawals listed below for account 1234."
	assert.Equal(t, 100.0, TextConfidence(rich))
}
