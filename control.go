package kaiku

type (
	// ControlValue is the universal automation currency. The engine moves
	// these between sources and linked parameters without interpreting
	// them; the receiving parameter decides what the number means in its
	// own unit.
	ControlValue float64

	// Normal is a unipolar level in the range 0 through 1, used for gains,
	// mix amounts and similar. Where a Normal has not been configured, the
	// engine treats it as 1, not 0, so new tracks and effects are audible.
	Normal float64

	// BipolarNormal is a level in the range -1 through 1, used for pan
	// positions, pitch bend and automation curves. Its natural rest value
	// is 0.
	BipolarNormal float64

	// ControlIndex addresses one automatable parameter of an entity.
	ControlIndex int
)

const (
	MinNormal Normal = 0
	MaxNormal Normal = 1
)

// NewNormal clamps v into range.
func NewNormal(v float64) Normal {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return Normal(v)
}

// NewBipolarNormal clamps v into range.
func NewBipolarNormal(v float64) BipolarNormal {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return BipolarNormal(v)
}

func (n Normal) ControlValue() ControlValue { return ControlValue(n) }

// ControlValue maps the bipolar range -1..1 onto 0..1.
func (b BipolarNormal) ControlValue() ControlValue { return ControlValue((b + 1) / 2) }

func (t Tempo) ControlValue() ControlValue { return ControlValue(t / MaxTempo) }

// ControlValueFromBool maps false to 0 and true to 1.
func ControlValueFromBool(b bool) ControlValue {
	if b {
		return 1
	}
	return 0
}

// ControlValueFromByte maps 0..255 onto 0..1.
func ControlValueFromByte(b byte) ControlValue { return ControlValue(float64(b) / 255) }

func (v ControlValue) Normal() Normal { return NewNormal(float64(v)) }

func (v ControlValue) BipolarNormal() BipolarNormal { return NewBipolarNormal(float64(v)*2 - 1) }

func (v ControlValue) Tempo() Tempo { return Tempo(v) * MaxTempo }

// Bool reports the value as a toggle; anything non-zero is on.
func (v ControlValue) Bool() bool { return v != 0 }

func (v ControlValue) Byte() byte {
	c := float64(v)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return byte(c*255 + 0.5)
}

// ControlLink connects an automation source to one parameter of one entity.
type ControlLink struct {
	Target Uid
	Param  ControlIndex
}

// ControlLinkSource tells the automator where a control value came from, so
// it can look up the links registered for that source. Exactly one of the
// fields is set; the other is zero.
type ControlLinkSource struct {
	Entity Uid
	Path   PathUid
}

func EntitySource(uid Uid) ControlLinkSource   { return ControlLinkSource{Entity: uid} }
func PathSource(uid PathUid) ControlLinkSource { return ControlLinkSource{Path: uid} }
