package recommender

import (
	"fmt"

	"github.com/opscart/server-rightsizer/pkg/analyzer"
	"github.com/opscart/server-rightsizer/pkg/catalog"
)

// Classification of a server's sizing relative to its observed load
type Classification string

const (
	Oversized  Classification = "OVERSIZED"
	RightSized Classification = "RIGHT_SIZED"
	Undersized Classification = "UNDERSIZED"
)

// Thresholds drive the classification rules. All values are utilization
// percentages except SafetyMargin, which is a fraction (0.20 = 20% headroom).
type Thresholds struct {
	CPUHigh      float64
	MemHigh      float64
	CPULow       float64
	MemLow       float64
	SafetyMargin float64
}

// DefaultThresholds returns the standard classification thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUHigh:      80,
		MemHigh:      85,
		CPULow:       40,
		MemLow:       50,
		SafetyMargin: 0.20,
	}
}

// Input is everything the classifier needs for one server
type Input struct {
	Server       string
	InstanceType string
	CPU          analyzer.Summary
	Memory       analyzer.Summary
	Disk         analyzer.Summary
	Contention   []analyzer.ContentionEvent
}

// Recommendation is the classifier's output for one server. It is a value
// record: created once per run, never mutated, only replaced by a later run.
type Recommendation struct {
	Server                  string
	Classification          Classification
	CurrentInstanceType     string
	RecommendedInstanceType string // empty for RightSized
	Confidence              float64
	Rationale               []string
}

// Classifier produces rightsizing recommendations from metric summaries,
// contention events, and the instance catalog.
type Classifier struct {
	catalog    *catalog.Catalog
	thresholds Thresholds
	rules      []rule
}

// evidence is the pre-computed view of one server's input that the
// classification rules match against.
type evidence struct {
	cpuP95         float64
	cpuKnown       bool
	memP95         float64
	memKnown       bool
	pressureEvents int
}

// rule pairs an outcome with its predicate. Rules are evaluated in order and
// the first match wins, which keeps precedence auditable: Undersized always
// outranks Oversized when both technically hold.
type rule struct {
	outcome Classification
	matches func(ev evidence, th Thresholds) bool
}

func classificationRules() []rule {
	return []rule{
		{
			outcome: Undersized,
			matches: func(ev evidence, th Thresholds) bool {
				return (ev.cpuKnown && ev.cpuP95 > th.CPUHigh) ||
					(ev.memKnown && ev.memP95 > th.MemHigh) ||
					ev.pressureEvents > 0
			},
		},
		{
			outcome: Oversized,
			matches: func(ev evidence, th Thresholds) bool {
				// Conjunctive on purpose: downsizing is conservative,
				// upsizing is eager.
				return ev.cpuKnown && ev.cpuP95 < th.CPULow &&
					ev.memKnown && ev.memP95 < th.MemLow
			},
		},
	}
}

// New creates a classifier. The catalog is required: a nil or empty catalog
// is a fatal configuration error.
func New(cat *catalog.Catalog, thresholds Thresholds) (*Classifier, error) {
	if cat == nil || cat.Size() == 0 {
		return nil, fmt.Errorf("instance catalog is required")
	}
	return &Classifier{
		catalog:    cat,
		thresholds: thresholds,
		rules:      classificationRules(),
	}, nil
}

// Classify produces the recommendation for one server. It is a pure function
// of its input and the catalog; identical input yields an identical record.
func (c *Classifier) Classify(in Input) Recommendation {
	rec := Recommendation{
		Server:              in.Server,
		Classification:      RightSized,
		CurrentInstanceType: in.InstanceType,
	}

	ev := evidence{
		cpuP95:   in.CPU.P95,
		cpuKnown: in.CPU.P95Known(),
		memP95:   in.Memory.P95,
		memKnown: in.Memory.P95Known(),
	}
	for _, event := range in.Contention {
		if event.Metric == analyzer.MetricCPU || event.Metric == analyzer.MetricMemory {
			ev.pressureEvents++
		}
	}

	for _, r := range c.rules {
		if r.matches(ev, c.thresholds) {
			rec.Classification = r.outcome
			break
		}
	}

	c.explain(&rec, ev)

	switch rec.Classification {
	case Oversized:
		c.selectSmaller(&rec, in)
	case Undersized:
		c.selectLarger(&rec, in)
	}

	rec.Confidence = c.confidence(rec.Classification, in, ev)

	return rec
}

// explain records the contributing reasons in evaluation order
func (c *Classifier) explain(rec *Recommendation, ev evidence) {
	th := c.thresholds

	switch rec.Classification {
	case Undersized:
		if ev.cpuKnown && ev.cpuP95 > th.CPUHigh {
			rec.Rationale = append(rec.Rationale,
				fmt.Sprintf("cpu p95 %.1f%% exceeds %.0f%% threshold", ev.cpuP95, th.CPUHigh))
		}
		if ev.memKnown && ev.memP95 > th.MemHigh {
			rec.Rationale = append(rec.Rationale,
				fmt.Sprintf("memory p95 %.1f%% exceeds %.0f%% threshold", ev.memP95, th.MemHigh))
		}
		if ev.pressureEvents > 0 {
			rec.Rationale = append(rec.Rationale,
				fmt.Sprintf("%d sustained contention event(s) on cpu/memory", ev.pressureEvents))
		}
	case Oversized:
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("low utilization (cpu p95 %.1f%% < %.0f%%, memory p95 %.1f%% < %.0f%%)",
				ev.cpuP95, th.CPULow, ev.memP95, th.MemLow))
	case RightSized:
		rec.Rationale = append(rec.Rationale, "utilization within configured bounds")
	}

	if !ev.cpuKnown {
		rec.Rationale = append(rec.Rationale, "cpu p95 unavailable, confidence reduced")
	}
	if !ev.memKnown {
		rec.Rationale = append(rec.Rationale, "memory p95 unavailable, confidence reduced")
	}
}

// requiredCapacity converts peak observed utilization of the current entry
// into absolute vCPU/memory demand plus the safety margin.
func (c *Classifier) requiredCapacity(current catalog.Entry, in Input) (vcpu, memoryGB float64) {
	margin := 1.0 + c.thresholds.SafetyMargin

	peakCPU := in.CPU.Max
	peakMem := in.Memory.Max
	if !in.CPU.HasData() {
		peakCPU = 100 // unknown peak: assume full use, blocks unsafe downsizing
	}
	if !in.Memory.HasData() {
		peakMem = 100
	}

	vcpu = float64(current.VCPU) * (peakCPU / 100.0) * margin
	memoryGB = current.MemoryGB * (peakMem / 100.0) * margin
	return vcpu, memoryGB
}

// selectSmaller finds the downsizing target: the largest family member that
// is strictly smaller than the current instance while still covering peak
// usage with the safety margin. When none qualifies the classification is
// downgraded to RightSized rather than recommending an unsafe target.
func (c *Classifier) selectSmaller(rec *Recommendation, in Input) {
	current, ok := c.catalog.Lookup(in.InstanceType)
	if !ok {
		rec.Classification = RightSized
		rec.RecommendedInstanceType = ""
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("current instance type %q not in catalog", in.InstanceType))
		return
	}

	neededVCPU, neededMem := c.requiredCapacity(current, in)

	var best *catalog.Entry
	for _, candidate := range c.catalog.Family(current.Family) {
		if candidate.InstanceType == current.InstanceType {
			continue
		}
		if candidate.VCPU > current.VCPU || candidate.MemoryGB > current.MemoryGB {
			continue
		}
		if float64(candidate.VCPU) < neededVCPU || candidate.MemoryGB < neededMem {
			continue
		}
		if best == nil || candidate.VCPU > best.VCPU ||
			(candidate.VCPU == best.VCPU && candidate.MemoryGB > best.MemoryGB) {
			entry := candidate
			best = &entry
		}
	}

	if best == nil {
		rec.Classification = RightSized
		rec.RecommendedInstanceType = ""
		rec.Rationale = append(rec.Rationale, "no safe smaller instance available")
		return
	}

	rec.RecommendedInstanceType = best.InstanceType
	rec.Rationale = append(rec.Rationale,
		fmt.Sprintf("downsize to %s (%d vCPU, %.0f GB) retains %.0f%% headroom",
			best.InstanceType, best.VCPU, best.MemoryGB, c.thresholds.SafetyMargin*100))
}

// selectLarger finds the upsizing target: the next-larger family member that
// covers peak usage with the safety margin.
func (c *Classifier) selectLarger(rec *Recommendation, in Input) {
	current, ok := c.catalog.Lookup(in.InstanceType)
	if !ok {
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("current instance type %q not in catalog", in.InstanceType))
		return
	}

	neededVCPU, neededMem := c.requiredCapacity(current, in)

	for _, candidate := range c.catalog.Family(current.Family) {
		if candidate.InstanceType == current.InstanceType {
			continue
		}
		if candidate.VCPU < current.VCPU || candidate.MemoryGB < current.MemoryGB {
			continue
		}
		if float64(candidate.VCPU) < neededVCPU || candidate.MemoryGB < neededMem {
			continue
		}
		// Family is ordered smallest to largest; first qualifying entry is
		// the next size up.
		rec.RecommendedInstanceType = candidate.InstanceType
		rec.Rationale = append(rec.Rationale,
			fmt.Sprintf("upsize to %s (%d vCPU, %.0f GB)",
				candidate.InstanceType, candidate.VCPU, candidate.MemoryGB))
		return
	}

	rec.Rationale = append(rec.Rationale, "no larger instance available in family")
}

// confidence blends data coverage with how decisively the thresholds were
// crossed. Monotonic in both: lower coverage or a thinner margin always
// yields lower confidence. Clamped to [0,1].
func (c *Classifier) confidence(class Classification, in Input, ev evidence) float64 {
	th := c.thresholds

	var coverageSum float64
	var coverageCount int
	for _, s := range []analyzer.Summary{in.CPU, in.Memory} {
		if s.HasData() {
			coverageSum += s.CoverageRatio
			coverageCount++
		}
	}
	coverage := 0.0
	if coverageCount > 0 {
		coverage = coverageSum / float64(coverageCount)
	}

	margin := 0.0
	switch class {
	case Undersized:
		if ev.cpuKnown && ev.cpuP95 > th.CPUHigh {
			margin = maxFloat(margin, (ev.cpuP95-th.CPUHigh)/(100-th.CPUHigh))
		}
		if ev.memKnown && ev.memP95 > th.MemHigh {
			margin = maxFloat(margin, (ev.memP95-th.MemHigh)/(100-th.MemHigh))
		}
		if ev.pressureEvents > 0 {
			// Sustained contention is direct evidence of pressure.
			margin = maxFloat(margin, 1.0)
		}
	case Oversized:
		cpuMargin := (th.CPULow - ev.cpuP95) / th.CPULow
		memMargin := (th.MemLow - ev.memP95) / th.MemLow
		margin = minFloat(cpuMargin, memMargin)
	case RightSized:
		// Distance from the nearest boundary, normalized to the band width.
		if ev.cpuKnown {
			band := th.CPUHigh - th.CPULow
			margin = maxFloat(margin, minFloat(ev.cpuP95-th.CPULow, th.CPUHigh-ev.cpuP95)/band)
		}
		if ev.memKnown {
			band := th.MemHigh - th.MemLow
			margin = maxFloat(margin, minFloat(ev.memP95-th.MemLow, th.MemHigh-ev.memP95)/band)
		}
	}
	margin = clamp01(margin)

	score := 0.6*coverage + 0.4*margin

	if !ev.cpuKnown {
		score -= 0.15
	}
	if !ev.memKnown {
		score -= 0.15
	}

	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
