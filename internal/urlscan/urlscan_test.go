package urlscan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/intruscan/internal/model"
	"github.com/user/intruscan/internal/storage"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		url      string
		detected bool
		matched  string
		level    model.ThreatLevel
	}{
		{"https://example.com/", false, "", model.ThreatLow},
		{"https://FREE-MALWARE.example", true, "malware", model.ThreatHigh},
		{"http://phishing-login.example", true, "phishing", model.ThreatMedium},
		{"https://paypal-fake.example", true, "paypal-fake", model.ThreatLow},
		{"https://login-steal.example", true, "steal", model.ThreatHigh},
		{"https://bank.example/reset-password", true, "password", model.ThreatLow},
		// Earlier keywords win even when a later one also matches.
		{"https://scam-malware.example", true, "malware", model.ThreatHigh},
		{"https://hack.example/phishing", true, "phishing", model.ThreatMedium},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := c.Classify(tt.url)
			if got.Detected != tt.detected || got.Matched != tt.matched || got.ThreatLevel != tt.level {
				t.Errorf("Classify(%q) = %+v", tt.url, got)
			}
		})
	}
}

func TestDefaultKeywords(t *testing.T) {
	kw := DefaultKeywords()
	if len(kw) != 19 {
		t.Fatalf("len = %d, want 19", len(kw))
	}
	if kw[0].Word != "malware" || kw[18].Word != "exploit" {
		t.Errorf("order = %v ... %v", kw[0], kw[18])
	}
	if LevelFor("fake") != model.ThreatMedium || LevelFor("google-fake") != model.ThreatLow {
		t.Error("levels must use exact keyword match")
	}
}

func TestLoadKeywords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	data := "keywords:\n  - word: Ransom\n    level: high\n  - word: scam\n  - word: \"  \"\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	kw, err := LoadKeywords(path)
	if err != nil {
		t.Fatalf("LoadKeywords() error = %v", err)
	}
	if len(kw) != 2 || kw[0] != (Keyword{"ransom", model.ThreatHigh}) || kw[1] != (Keyword{"scam", model.ThreatMedium}) {
		t.Errorf("keywords = %+v", kw)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("keywords:\n  - word: x\n    level: severe\n"), 0644)
	if _, err := LoadKeywords(bad); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := LoadKeywords(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTracker(t *testing.T) {
	db, err := storage.Open(storage.DriverSQLite, filepath.Join(t.TempDir(), "urls.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	tr := NewTracker(NewClassifier(nil), storage.NewCounterStorage(db))
	fixed := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	c, err := tr.Counters()
	if err != nil || c != (model.URLCounters{}) {
		t.Fatalf("initial counters = %+v, %v", c, err)
	}

	for _, u := range []string{"https://example.com", "https://virus.example", "https://docs.example"} {
		if _, err := tr.Check(u); err != nil {
			t.Fatalf("Check(%s) error = %v", u, err)
		}
	}

	c, _ = tr.Counters()
	if c.RequestsScanned != 3 || c.ThreatsDetected != 1 {
		t.Errorf("counters = %+v", c)
	}

	last, err := tr.LastCheck()
	if err != nil || last == nil || last.URL != "https://docs.example" {
		t.Errorf("LastCheck() = %+v, %v", last, err)
	}

	if err := tr.Reset(); err != nil {
		t.Fatal(err)
	}
	c, _ = tr.Counters()
	if c != (model.URLCounters{}) {
		t.Errorf("counters after reset = %+v", c)
	}
}
