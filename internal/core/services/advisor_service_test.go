package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/logger"
	"github.com/agricagent/agricagent/internal/media"
)

func testLogger() logger.Logger {
	return logger.New(slog.LevelError, os.Stderr)
}

// fakeLLM returns canned replies and records what it was asked.
type fakeLLM struct {
	reply      domain.Reply
	calls      int
	imageCalls int
	lastPrompt string
	lastImage  string
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) domain.Reply {
	f.calls++
	f.lastPrompt = prompt
	return f.reply
}

func (f *fakeLLM) CompleteWithImage(ctx context.Context, system, prompt, imageDataURL string) domain.Reply {
	f.calls++
	f.imageCalls++
	f.lastPrompt = prompt
	f.lastImage = imageDataURL
	return f.reply
}

// fakeRepo stores interactions in memory, optionally failing every save.
type fakeRepo struct {
	saved   []domain.Interaction
	saveErr error
}

func (f *fakeRepo) Save(ctx context.Context, i *domain.Interaction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	i.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *i)
	return nil
}

func (f *fakeRepo) ListRecent(ctx context.Context, limit int) ([]domain.Interaction, error) {
	return f.saved, nil
}

func newTestService(llm *fakeLLM, repo *fakeRepo, mediaCfg config.MediaConfig) *AdvisorService {
	log := testLogger()
	normalizer := media.NewNormalizer(nil, mediaCfg.MaxUploadBytes(), log)
	compressor := media.NewCompressor(mediaCfg.MaxEdgePixels, mediaCfg.JPEGQuality, log)
	return NewAdvisorService(llm, repo, normalizer, compressor, mediaCfg, log)
}

func defaultMediaCfg() config.MediaConfig {
	return config.MediaConfig{MaxUploadMB: 1, MaxEdgePixels: 1600, JPEGQuality: 82}
}

// tinyJPEG encodes a small real image so the compressor keeps the image/*
// MIME type instead of falling back to content sniffing.
func tinyJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestChat_RecordsInteraction(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("Apply NPK fertilizer and check drainage.")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	reply := svc.Chat(context.Background(), "api", "my soil is turning grey")

	if reply.Degraded {
		t.Error("expected non-degraded reply")
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected 1 interaction, got %d", len(repo.saved))
	}
	got := repo.saved[0]
	if got.Category != domain.CategorySoil {
		t.Errorf("expected soil category, got %q", got.Category)
	}
	if got.Analysis != reply.Text {
		t.Error("recorded analysis differs from reply")
	}
	if got.TraceID == "" {
		t.Error("expected a trace id on the interaction")
	}
}

func TestChat_RecorderFailureKeepsReply(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("advice")}
	repo := &fakeRepo{saveErr: errors.New("disk full")}
	svc := newTestService(llm, repo, defaultMediaCfg())

	reply := svc.Chat(context.Background(), "api", "hello")
	if reply.Text != "advice" {
		t.Errorf("storage failure must not change the reply, got %q", reply.Text)
	}
}

func TestIdentify_OversizedNeverReachesLLM(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("should not be used")}
	repo := &fakeRepo{}
	cfg := defaultMediaCfg() // 1 MB bound
	svc := newTestService(llm, repo, cfg)

	ref := &domain.MediaRef{
		Source:      domain.MediaSourceUpload,
		Data:        make([]byte, 2<<20),
		Filename:    "big.jpg",
		ContentType: "image/jpeg",
	}

	_, err := svc.Identify(context.Background(), "api", ref, "")
	if !errors.Is(err, domain.ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if llm.calls != 0 {
		t.Error("oversized media must not reach the inference gateway")
	}
}

func TestIdentify_SendsDataURLAndRecordsMime(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("Identified: maize leaf")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	ref := &domain.MediaRef{
		Source:      domain.MediaSourceUpload,
		Data:        tinyJPEG(t),
		Filename:    "leaf.jpg",
		ContentType: "image/jpeg",
	}

	reply, err := svc.Identify(context.Background(), "api", ref, "planted two weeks ago")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.imageCalls != 1 {
		t.Fatalf("expected 1 image call, got %d", llm.imageCalls)
	}
	if !strings.HasPrefix(llm.lastImage, "data:image/") {
		t.Errorf("image must be passed as a data URL, got prefix %q", llm.lastImage[:20])
	}
	if !strings.Contains(llm.lastPrompt, "planted two weeks ago") {
		t.Error("context hint missing from prompt")
	}
	if len(repo.saved) != 1 || repo.saved[0].MediaMime == "" {
		t.Error("interaction must record the media MIME type")
	}
	if repo.saved[0].Analysis != reply.Text {
		t.Error("recorded analysis differs from reply")
	}
}

func TestIdentify_WritesDebugCopyWhenConfigured(t *testing.T) {
	cfg := defaultMediaCfg()
	cfg.DebugDir = t.TempDir()

	llm := &fakeLLM{reply: domain.OkReply("ok")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, cfg)

	ref := &domain.MediaRef{
		Source:      domain.MediaSourceUpload,
		Data:        []byte("bytes"),
		Filename:    "leaf.jpg",
		ContentType: "image/jpeg",
	}
	if _, err := svc.Identify(context.Background(), "api", ref, ""); err != nil {
		t.Fatal(err)
	}

	path := repo.saved[0].MediaPath
	if path == "" {
		t.Fatal("expected media path recorded")
	}
	if filepath.Dir(path) != cfg.DebugDir {
		t.Errorf("debug copy written outside configured dir: %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("debug copy missing: %v", err)
	}
}

func TestHandleInbound_EmptyMessageAsksForMore(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("should not be used")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	msg := domain.NewInboundMessage("whatsapp:+1555", "", nil)
	reply := svc.HandleInbound(context.Background(), msg)

	if !reply.Degraded {
		t.Error("empty inbound message should yield a degraded reply")
	}
	if llm.calls != 0 {
		t.Error("inference must not run for an empty message")
	}
	if !strings.Contains(reply.Text, "send a message or a photo") {
		t.Errorf("unexpected reply text %q", reply.Text)
	}
	if len(repo.saved) != 1 {
		t.Error("empty inbound message must still be recorded")
	}
}

func TestHandleInbound_MediaFetchFailureDegradesToText(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("text-only advice")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	// nil fetcher in the normalizer makes any true remote URL fail.
	msg := domain.NewInboundMessage("whatsapp:+1555", "check my maize", &domain.MediaRef{
		Source:    domain.MediaSourceRemote,
		RemoteURL: "https://carrier.example/media/unreachable",
	})

	reply := svc.HandleInbound(context.Background(), msg)
	if reply.Text != "text-only advice" {
		t.Errorf("expected text pipeline reply, got %q", reply.Text)
	}
	if llm.imageCalls != 0 {
		t.Error("failed media fetch must not produce an image call")
	}
	if repo.saved[0].MediaMime != "" {
		t.Error("no media should be recorded when the fetch failed")
	}
}

func TestHandleInbound_UnreadableImageNoBody(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("should not be used")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	msg := domain.NewInboundMessage("whatsapp:+1555", "", &domain.MediaRef{
		Source:    domain.MediaSourceRemote,
		RemoteURL: "https://carrier.example/media/unreachable",
	})

	reply := svc.HandleInbound(context.Background(), msg)
	if !reply.Degraded {
		t.Error("expected degraded reply")
	}
	if llm.calls != 0 {
		t.Error("no inference call expected when nothing usable arrived")
	}
	if !strings.Contains(reply.Text, "couldn't read the image") {
		t.Errorf("unexpected reply %q", reply.Text)
	}
}

func TestHandleInbound_DataURLMediaGoesToVision(t *testing.T) {
	llm := &fakeLLM{reply: domain.OkReply("Identified: soil")}
	repo := &fakeRepo{}
	svc := newTestService(llm, repo, defaultMediaCfg())

	msg := domain.NewInboundMessage("whatsapp:+1555", "check my soil", &domain.MediaRef{
		Source:    domain.MediaSourceRemote,
		RemoteURL: "data:image/jpeg;base64,AQID",
	})

	reply := svc.HandleInbound(context.Background(), msg)
	if llm.imageCalls != 1 {
		t.Fatalf("expected vision call, got %d", llm.imageCalls)
	}
	if reply.Degraded {
		t.Error("expected ok reply")
	}
	if repo.saved[0].Category != domain.CategorySoil {
		t.Errorf("expected soil category, got %q", repo.saved[0].Category)
	}
}
