package pipeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docufield/constants"
)

// Milestones emitted per document, in processing order.
const (
	MilestoneValidate = "validate"
	MilestoneOCR      = "ocr"
	MilestoneClassify = "classify"
	MilestoneExtract  = "extract"
	MilestoneFinalize = "finalize"
)

// Event kinds. Progress events carry a milestone label and a fraction;
// the catalog kinds fire when learning or rule application mutates state.
const (
	EventStarted         = "processing-started"
	EventProgress        = "progress"
	EventCompleted       = "processing-completed"
	EventFailed          = "processing-failed"
	EventPatternLearned  = "pattern-learned"
	EventPatternImproved = "pattern-improved"
	EventRuleApplied     = "rule-applied"
)

// Event is one fire-and-forget notification. Index/Total are batch
// positions, 1-based; zero for single-document runs. Fraction is the
// completed share of the per-document milestones, 0.0 to 1.0.
type Event struct {
	Kind       string                     `json:"kind"`
	DocumentID uuid.UUID                  `json:"document_id,omitempty"`
	SourcePath string                     `json:"source_path,omitempty"`
	Milestone  string                     `json:"milestone,omitempty"`
	Fraction   float64                    `json:"fraction,omitempty"`
	Status     constants.ProcessingStatus `json:"status,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Index      int                        `json:"index,omitempty"`
	Total      int                        `json:"total,omitempty"`
	At         time.Time                  `json:"at"`
}

// Notifier fans progress events out to subscriber channels. Publish never
// blocks: a subscriber that falls behind loses events rather than stalling
// the pipeline.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{subs: make(map[int]chan Event), logger: logger}
}

// Subscribe registers a buffered event channel. The returned cancel func
// closes the channel and removes the subscription.
func (n *Notifier) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = ch
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber, dropping on full buffers.
func (n *Notifier) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, ch := range n.subs {
		select {
		case ch <- ev:
		default:
			n.logger.Debug("pipeline.notify.dropped", "subscriber", id, "kind", ev.Kind, "milestone", ev.Milestone)
		}
	}
}
