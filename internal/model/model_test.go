package model

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		rate float64
		want RiskLevel
	}{
		{0, RiskLow},
		{9.99, RiskLow},
		{10, RiskLow},
		{10.01, RiskMedium},
		{20, RiskMedium},
		{20.0001, RiskHigh},
		{25, RiskHigh},
		{100, RiskHigh},
	}

	for _, tt := range tests {
		if got := RiskLevelFor(tt.rate); got != tt.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

func TestNewScanSummary(t *testing.T) {
	s := NewScanSummary("capture.csv", testTime, 1000, 250, 1.5)
	if s.AnomalyRatePercent != 25 {
		t.Errorf("AnomalyRatePercent = %v, want 25", s.AnomalyRatePercent)
	}
	if s.NormalRecords != 750 {
		t.Errorf("NormalRecords = %d, want 750", s.NormalRecords)
	}
	if s.RiskLevel() != RiskHigh {
		t.Errorf("RiskLevel = %s, want High", s.RiskLevel())
	}

	empty := NewScanSummary("empty.csv", testTime, 0, 0, 0)
	if empty.AnomalyRatePercent != 0 || math.IsNaN(empty.AnomalyRatePercent) {
		t.Errorf("zero total rate = %v, want 0", empty.AnomalyRatePercent)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(450, 1000); got != 45 {
		t.Errorf("Percent(450, 1000) = %v, want 45", got)
	}
	if got := Percent(5, 0); got != 0 {
		t.Errorf("Percent(5, 0) = %v, want 0", got)
	}
	if got := Percent(5, -1); got != 0 {
		t.Errorf("Percent(5, -1) = %v, want 0", got)
	}
}

func TestClassDistributionSorted(t *testing.T) {
	d := ClassDistribution{"class_2": 10, "class_0": 700, "class_1": 300, "class_3": 10}
	got := d.Sorted()

	want := []string{"class_0", "class_1", "class_2", "class_3"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Key != k {
			t.Errorf("entry %d = %s, want %s", i, got[i].Key, k)
		}
	}
	if d.Sum() != 1020 {
		t.Errorf("Sum = %d, want 1020", d.Sum())
	}
	if _, ok := d.Attacks()[NormalClass]; ok {
		t.Error("Attacks() kept the normal class")
	}
}

func TestLookupClass(t *testing.T) {
	if got := ClassLabel("class_1"); got != "DoS/DDoS Attacks" {
		t.Errorf("ClassLabel(class_1) = %s", got)
	}
	unknown := LookupClass("class_42")
	if unknown.Label != "class_42" || unknown.Color != unknownClassColor {
		t.Errorf("LookupClass(class_42) = %+v", unknown)
	}
	if !IsNormal("class_0") || IsNormal("class_1") {
		t.Error("IsNormal mismatch")
	}
}

func TestScanResultsUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantDist  int
		wantCount int
	}{
		{
			name: "flat",
			body: `{"total_records":100,"anomalies_detected":5,"normal_records":95,"anomaly_rate":5,
				"processing_time":0.4,"class_distribution":{"class_0":95,"class_1":5},
				"anomaly_scores_summary":{"min":0.1,"max":0.9,"avg":0.3,"count":100}}`,
			wantDist:  2,
			wantCount: 100,
		},
		{
			name: "nested",
			body: `{"total_records":100,"anomalies_detected":5,"normal_records":95,"anomaly_rate":5,
				"processing_time":0.4,"results":{"class_distribution":{"class_0":95,"class_2":3,"class_3":2},
				"anomaly_scores_summary":{"min":0.1,"max":0.9,"avg":0.3,"count":100}}}`,
			wantDist:  3,
			wantCount: 100,
		},
		{
			name:      "raw scores",
			body:      `{"total_records":3,"anomalies_detected":1,"normal_records":2,"anomaly_rate":33.3,"anomaly_scores":[0.1,0.2,0.9]}`,
			wantDist:  0,
			wantCount: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ScanResults
			if err := json.Unmarshal([]byte(tt.body), &r); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if len(r.ClassDistribution) != tt.wantDist {
				t.Errorf("ClassDistribution len = %d, want %d", len(r.ClassDistribution), tt.wantDist)
			}
			if r.AnomalyScores == nil || r.AnomalyScores.Count != tt.wantCount {
				t.Errorf("AnomalyScores = %+v, want count %d", r.AnomalyScores, tt.wantCount)
			}
		})
	}
}

func TestScanRecordSummary(t *testing.T) {
	rec := ScanRecord{
		Filename:   "a.csv",
		UploadDate: testTime,
		Results: ScanResults{
			TotalRecords:      10,
			AnomaliesDetected: 3,
			NormalRecords:     7,
			AnomalyRate:       30,
			ClassDistribution: ClassDistribution{"class_0": 7, "class_1": 3},
		},
	}
	s := rec.Summary()
	s.ClassDistribution["class_1"] = 99
	if rec.Results.ClassDistribution["class_1"] != 3 {
		t.Error("Summary shares the record's distribution map")
	}
}
