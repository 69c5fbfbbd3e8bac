package systems

import (
	"github.com/spaghettifunk/quadcore/engine/math"
)

/**
 * @brief Model transform inputs for the quad. Any change marks the state
 * dirty; Refresh folds the pending change into the world matrix.
 */
type TransformState struct {
	translation math.Vec3
	scale       float32
	// angle swept during one rotation period, sign gives the direction
	rotationAngle float32
	// delta applied by the next Refresh
	angle    float32
	rotating bool
	dirty    bool
}

func NewTransformState() *TransformState {
	return &TransformState{
		scale:         1.0,
		rotationAngle: math.K_PI_2,
		rotating:      true,
		dirty:         true,
	}
}

func (ts *TransformState) SetTranslation(translation math.Vec3) {
	ts.translation = translation
	ts.dirty = true
}

func (ts *TransformState) SetScale(scale float32) {
	ts.scale = scale
	ts.dirty = true
}

func (ts *TransformState) SetRotationAngle(angle float32) {
	ts.rotationAngle = angle
	ts.dirty = true
}

// RotateY sets the rotation applied by the next Refresh.
func (ts *TransformState) RotateY(angle float32) {
	ts.angle = angle
	ts.dirty = true
}

// FlipDirection reverses the rotation direction.
func (ts *TransformState) FlipDirection() {
	ts.rotationAngle = -ts.rotationAngle
	ts.dirty = true
}

func (ts *TransformState) SetRotating(rotating bool) {
	ts.rotating = rotating
	ts.dirty = true
}

func (ts *TransformState) Translation() math.Vec3 { return ts.translation }
func (ts *TransformState) Scale() float32          { return ts.scale }
func (ts *TransformState) RotationAngle() float32  { return ts.rotationAngle }
func (ts *TransformState) Angle() float32          { return ts.angle }
func (ts *TransformState) Rotating() bool          { return ts.rotating }
func (ts *TransformState) Dirty() bool             { return ts.dirty }

/**
 * @brief Post-multiplies world by the pending transformation if the state is
 * dirty. While rotating the quad turns about the translated pivot
 * (untranslate, rotate, translate), otherwise it is only translated. The
 * uniform scale multiplies the whole matrix.
 *
 * @return true when world changed.
 */
func (ts *TransformState) Refresh(world *math.Mat4) bool {
	if !ts.dirty {
		return false
	}

	rotation := math.NewMat4EulerY(ts.angle).Transposed()
	translation := math.NewMat4Translation(ts.translation).Transposed()

	var transformation math.Mat4
	if ts.rotating {
		transformation = translation.Inverse().Mul(rotation).Mul(translation).MulScalar(ts.scale)
	} else {
		transformation = translation.MulScalar(ts.scale)
	}

	*world = world.Mul(transformation)
	ts.dirty = false
	return true
}
