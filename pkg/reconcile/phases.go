package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/specchio/pkg/chat"
)

type PhaseStatus string

const (
	PhaseStarted   PhaseStatus = "started"
	PhaseProgress  PhaseStatus = "progress"
	PhaseCompleted PhaseStatus = "completed"
	PhaseError     PhaseStatus = "error"
)

// PhaseEvent is a unit-of-work lifecycle marker embedded in an agent
// message's text as __PHASE_STATUS__<json>__. Summary and Duration are only
// populated on completed/error markers. The emitter also includes a
// "type":"phase_status" discriminator which the decoder tolerates and
// ignores, like any other extra field.
type PhaseEvent struct {
	Phase    int         `json:"phase"`
	Status   PhaseStatus `json:"status"`
	Summary  string      `json:"summary,omitempty"`
	Duration string      `json:"duration,omitempty"`
}

func (e PhaseEvent) Terminal() bool {
	return e.Status == PhaseCompleted || e.Status == PhaseError
}

const (
	phaseMarkerPrefix = "__PHASE_STATUS__"
	phaseMarkerSuffix = "__"
)

// ParsePhaseMarker extracts a phase event from message text. The marker can
// appear anywhere in the text. Returns false for missing or unparsable
// markers; an unparsable marker is logged and otherwise ignored.
func ParsePhaseMarker(text string) (PhaseEvent, bool) {
	start := strings.Index(text, phaseMarkerPrefix)
	if start < 0 {
		return PhaseEvent{}, false
	}
	rest := text[start+len(phaseMarkerPrefix):]
	end := strings.Index(rest, phaseMarkerSuffix)
	if end < 0 {
		return PhaseEvent{}, false
	}
	payload := rest[:end]

	var ev PhaseEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Debug().Err(err).Str("payload", payload).Msg("unparsable phase marker, ignoring")
		return PhaseEvent{}, false
	}
	if ev.Phase <= 0 {
		return PhaseEvent{}, false
	}
	switch ev.Status {
	case PhaseStarted, PhaseProgress, PhaseCompleted, PhaseError:
	default:
		return PhaseEvent{}, false
	}
	return ev, true
}

// HasPhaseMarker reports whether the text embeds a marker token at all, so
// marker-bearing messages never render as ordinary chat text even when the
// payload is unparsable.
func HasPhaseMarker(text string) bool {
	return strings.Contains(text, phaseMarkerPrefix)
}

// phaseRecord ties a parsed marker to its position in the message list.
type phaseRecord struct {
	index int
	event PhaseEvent
}

// PhaseRange is a resolved phase: its started marker paired with the first
// subsequent completed/error marker for the same phase number.
type PhaseRange struct {
	Phase      int
	StartIndex int
	EndIndex   int
}

// phasePass holds the outcome of scanning a message list for phase markers.
type phasePass struct {
	// events by message index, for marker-bearing messages that parsed
	events map[int]PhaseEvent
	ranges []PhaseRange
}

// scanPhases parses every agent message for markers and pairs resolved
// phases. Phases without a terminal marker, or whose terminal marker has no
// preceding started marker, stay unresolved and contribute no range.
func scanPhases(msgs chat.Conversation) phasePass {
	pass := phasePass{events: make(map[int]PhaseEvent)}

	records := map[int][]phaseRecord{}
	for i, m := range msgs {
		if m == nil || m.Role != chat.RoleAgent {
			continue
		}
		ev, ok := ParsePhaseMarker(m.PlainText())
		if !ok {
			continue
		}
		pass.events[i] = ev
		records[ev.Phase] = append(records[ev.Phase], phaseRecord{index: i, event: ev})
	}

	for phase, recs := range records {
		start := -1
		for _, r := range recs {
			if r.event.Status == PhaseStarted {
				start = r.index
				break
			}
		}
		if start < 0 {
			continue
		}
		for _, r := range recs {
			if r.index > start && r.event.Terminal() {
				pass.ranges = append(pass.ranges, PhaseRange{
					Phase:      phase,
					StartIndex: start,
					EndIndex:   r.index,
				})
				break
			}
		}
	}

	return pass
}

// buildSkipSet computes the hidden message indices for the resolved phase
// ranges. The started marker is always hidden. Agent messages strictly inside
// a range hide only when they carry no tool calls; tool evidence stays
// visible, and tool_result messages are never hidden. The terminal marker is
// never hidden; it renders as the collapsed summary row.
func buildSkipSet(msgs chat.Conversation, ranges []PhaseRange, calls *ToolCallIndex) map[int]bool {
	skip := map[int]bool{}
	for _, r := range ranges {
		skip[r.StartIndex] = true
		for i := r.StartIndex + 1; i < r.EndIndex && i < len(msgs); i++ {
			m := msgs[i]
			if m == nil || m.Role != chat.RoleAgent {
				continue
			}
			if len(calls.ForMessage(m.ID)) > 0 {
				continue
			}
			skip[i] = true
		}
	}
	return skip
}

// phaseDetail reassembles the free text collapsed into a resolved phase:
// the plain text of every hidden agent message strictly inside the range,
// in order, joined by blank lines. Marker-bearing messages are excluded
// whether or not their payload parsed; marker tokens never surface as text.
func phaseDetail(msgs chat.Conversation, r PhaseRange, skip map[int]bool) string {
	var parts []string
	for i := r.StartIndex + 1; i < r.EndIndex && i < len(msgs); i++ {
		if !skip[i] {
			continue
		}
		text := msgs[i].PlainText()
		if text == "" || HasPhaseMarker(text) {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
