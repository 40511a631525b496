package selection

import (
	"fmt"
	"sort"

	"voxeledit.ai/internal/editor/color"
	"voxeledit.ai/internal/editor/geom"
)

type Action int

const (
	ActionAdd Action = iota
	ActionSubtract
)

func (a Action) String() string {
	if a == ActionSubtract {
		return "SUBTRACT"
	}
	return "ADD"
}

type entry struct {
	action Action
	volume geom.BlockVolume
}

// Selection is an ordered stack of block volumes. A selection belongs to one session
// and is only touched from that session's loop.
type Selection struct {
	id          string
	Visible     bool
	BorderColor color.RGBA
	FillColor   color.RGBA

	entries []entry
	mgr     *Manager
}

func (s *Selection) ID() string { return s.id }

// PushVolume appends a volume to the selection stack.
func (s *Selection) PushVolume(a Action, v geom.BlockVolume) {
	s.entries = append(s.entries, entry{action: a, volume: v})
	s.changed()
}

// PopVolume removes the most recently pushed volume.
func (s *Selection) PopVolume() bool {
	if len(s.entries) == 0 {
		return false
	}
	s.entries = s.entries[:len(s.entries)-1]
	s.changed()
	return true
}

func (s *Selection) Clear() {
	if len(s.entries) == 0 {
		return
	}
	s.entries = s.entries[:0]
	s.changed()
}

func (s *Selection) IsEmpty() bool { return len(s.entries) == 0 }

// Size is the number of pushed volumes.
func (s *Selection) Size() int { return len(s.entries) }

// Volumes returns the pushed volumes in order, regardless of action.
func (s *Selection) Volumes() []geom.BlockVolume {
	out := make([]geom.BlockVolume, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.volume)
	}
	return out
}

// Blocks returns the unique block locations covered by the selection in push order.
// Subtract volumes remove locations added before them.
func (s *Selection) Blocks() []geom.Vec3i {
	var out []geom.Vec3i
	seen := map[geom.Vec3i]struct{}{}
	for _, e := range s.entries {
		switch e.action {
		case ActionAdd:
			e.volume.Locations(func(p geom.Vec3i) bool {
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					out = append(out, p)
				}
				return true
			})
		case ActionSubtract:
			bb := e.volume.BoundingBox()
			kept := out[:0]
			for _, p := range out {
				if bb.Contains(p) {
					delete(seen, p)
					continue
				}
				kept = append(kept, p)
			}
			out = kept
		}
	}
	return out
}

// BoundingBox returns the box around every added volume.
func (s *Selection) BoundingBox() (geom.BoundingBox, bool) {
	var (
		bb geom.BoundingBox
		ok bool
	)
	for _, e := range s.entries {
		if e.action != ActionAdd {
			continue
		}
		if !ok {
			bb, ok = e.volume.BoundingBox(), true
			continue
		}
		bb = bb.Union(e.volume.BoundingBox())
	}
	return bb, ok
}

func (s *Selection) changed() {
	if s.mgr != nil && s.mgr.onChange != nil {
		s.mgr.onChange(s)
	}
}

// Manager creates and tracks the selections of one session.
type Manager struct {
	next       int
	selections map[string]*Selection
	onChange   func(*Selection)
}

func NewManager() *Manager {
	return &Manager{selections: map[string]*Selection{}}
}

func (m *Manager) CreateSelection() *Selection {
	m.next++
	s := &Selection{
		id:          fmt.Sprintf("SEL%04d", m.next),
		BorderColor: color.White,
		FillColor:   color.White.WithAlpha(0.1),
		mgr:         m,
	}
	m.selections[s.id] = s
	return s
}

func (m *Manager) Get(id string) (*Selection, bool) {
	s, ok := m.selections[id]
	return s, ok
}

func (m *Manager) Delete(id string) {
	if s, ok := m.selections[id]; ok {
		s.mgr = nil
		delete(m.selections, id)
	}
}

func (m *Manager) All() []*Selection {
	out := make([]*Selection, 0, len(m.selections))
	for _, s := range m.selections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// OnChange installs the observer notified after every mutation of any selection.
func (m *Manager) OnChange(fn func(*Selection)) { m.onChange = fn }
