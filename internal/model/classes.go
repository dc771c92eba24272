package model

import (
	"sort"
)

// NormalClass is the distribution key for benign traffic.
const NormalClass = "class_0"

// RGB is an 8-bit colour triple.
type RGB struct {
	R, G, B uint8
}

// ClassInfo describes one traffic category.
type ClassInfo struct {
	Key   string
	Label string
	Color RGB
}

var unknownClassColor = RGB{107, 114, 128}

// Classes is the fixed category vocabulary in key order.
var Classes = []ClassInfo{
	{Key: "class_0", Label: "Normal Traffic", Color: RGB{34, 197, 94}},
	{Key: "class_1", Label: "DoS/DDoS Attacks", Color: RGB{239, 68, 68}},
	{Key: "class_2", Label: "Port Scans", Color: RGB{249, 115, 22}},
	{Key: "class_3", Label: "Bot Attacks", Color: RGB{234, 179, 8}},
	{Key: "class_4", Label: "Infiltration Attempts", Color: RGB{168, 85, 247}},
	{Key: "class_5", Label: "Web Attacks", Color: RGB{236, 72, 153}},
	{Key: "class_6", Label: "Brute Force Attacks", Color: RGB{20, 184, 166}},
	{Key: "class_7", Label: "Heartbleed Exploits", Color: RGB{99, 102, 241}},
	{Key: "class_8", Label: "SQL Injection", Color: RGB{59, 130, 246}},
}

var classIndex = func() map[string]ClassInfo {
	m := make(map[string]ClassInfo, len(Classes))
	for _, c := range Classes {
		m[c.Key] = c
	}
	return m
}()

// LookupClass returns the info for key. Unknown keys are labelled with
// the key itself and drawn in grey.
func LookupClass(key string) ClassInfo {
	if c, ok := classIndex[key]; ok {
		return c
	}
	return ClassInfo{Key: key, Label: key, Color: unknownClassColor}
}

// ClassLabel returns the human label for key.
func ClassLabel(key string) string {
	return LookupClass(key).Label
}

// IsNormal reports whether key is the normal-traffic category.
func IsNormal(key string) bool {
	return key == NormalClass
}

// ClassDistribution maps a category key to its record count.
type ClassDistribution map[string]int

// ClassCount is one entry of a distribution.
type ClassCount struct {
	Key   string
	Count int
}

// Clone returns an independent copy, or nil for a nil distribution.
func (d ClassDistribution) Clone() ClassDistribution {
	if d == nil {
		return nil
	}
	out := make(ClassDistribution, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Sum returns the total of all counts.
func (d ClassDistribution) Sum() int {
	total := 0
	for _, v := range d {
		total += v
	}
	return total
}

// Sorted returns entries ordered by count descending, ties by key.
func (d ClassDistribution) Sorted() []ClassCount {
	out := make([]ClassCount, 0, len(d))
	for k, v := range d {
		out = append(out, ClassCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Attacks returns the distribution without the normal class.
func (d ClassDistribution) Attacks() ClassDistribution {
	out := make(ClassDistribution, len(d))
	for k, v := range d {
		if !IsNormal(k) {
			out[k] = v
		}
	}
	return out
}
