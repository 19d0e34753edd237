package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// Part names a machine component drawn next to the stone.
type Part string

const (
	PartLap  Part = "lap"
	PartMast Part = "mast"
	PartDop  Part = "dop"
)

const (
	// MastRadius is the radius of the mast post.
	MastRadius = 0.1
	// DopRadius is the radius of the dop rod.
	DopRadius = 0.05
	// DopHeadRadius is the radius of the ball the stone is glued to.
	DopHeadRadius = 0.2
)

// PartPose places one machine part. Every part is modelled as a
// cylinder of Length along local +Y centred on the origin; Transform
// maps it into the stone frame.
type PartPose struct {
	Part   Part    `json:"part"`
	Length float64 `json:"length"`
	Radius float64 `json:"radius"`

	Transform mgl64.Mat4 `json:"-"`
	// Translation and Rotation decompose Transform. Rotation holds Euler
	// angles in degrees applied X first, then Y, then Z.
	Translation r3.Vec `json:"translation"`
	Rotation    r3.Vec `json:"rotation"`
}

// Layout positions the lap, mast and dop for a pose.
//
// The lap is a disc whose working face lies on the cutting plane with
// its body on the removed side. The dop runs from the stone along -Y. The
// mast is hinged at the far end of the dop and raised by the height
// adjustment. It tilts by the mast angle away from the lap, so seen from
// above it always points opposite the facet Azimuth.
func Layout(p Pose, s Settings, cfg Config) []PartPose {
	thickness := cfg.LapThickness
	if thickness <= 0 {
		thickness = DefaultLapThickness
	}

	plane := CuttingPlane(p, cfg)
	n := mgl64.Vec3{plane.Normal.X, plane.Normal.Y, plane.Normal.Z}
	centre := mgl64.Vec3{plane.Point.X, plane.Point.Y, plane.Point.Z}.Add(n.Mul(thickness / 2))
	align := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 1, 0}, n).Mat4()
	lap := mgl64.Translate3D(centre[0], centre[1], centre[2]).Mul4(align)

	dop := mgl64.Translate3D(0, -p.DopLength/2, 0)

	height := 3 * s.MastAdjust
	// RotateZ leans +Y towards -X; turning by -az then heads it at az+π.
	mast := mgl64.Translate3D(0, -p.DopLength+(s.HeightAdjust-1), 0).
		Mul4(mgl64.HomogRotate3DY(-Azimuth(p, cfg))).
		Mul4(mgl64.HomogRotate3DZ(mgl64.DegToRad(p.MastAngle))).
		Mul4(mgl64.Translate3D(0, height/2, 0))

	return []PartPose{
		newPartPose(PartLap, thickness, s.LapSize, lap),
		newPartPose(PartMast, height, MastRadius, mast),
		newPartPose(PartDop, p.DopLength, DopRadius, dop),
	}
}

func newPartPose(part Part, length, radius float64, m mgl64.Mat4) PartPose {
	rx, ry, rz := eulerXYZ(m)
	return PartPose{
		Part:        part,
		Length:      length,
		Radius:      radius,
		Transform:   m,
		Translation: r3.Vec{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)},
		Rotation:    r3.Vec{X: mgl64.RadToDeg(rx), Y: mgl64.RadToDeg(ry), Z: mgl64.RadToDeg(rz)},
	}
}

// eulerXYZ decomposes the rotation part of m into angles such that
// m = Rz * Ry * Rx.
func eulerXYZ(m mgl64.Mat4) (x, y, z float64) {
	sy := -m.At(2, 0)
	sy = math.Max(-1, math.Min(1, sy))
	y = math.Asin(sy)
	if math.Abs(sy) > 1-1e-12 {
		// Gimbal lock: fold the X rotation into Z.
		return 0, y, math.Atan2(-m.At(0, 1), m.At(1, 1))
	}
	return math.Atan2(m.At(2, 1), m.At(2, 2)), y, math.Atan2(m.At(1, 0), m.At(0, 0))
}

// LapAngle returns the lap's spin angle in degrees after seconds of
// running at the configured speed.
func LapAngle(s Settings, seconds float64) float64 {
	return math.Mod(360*s.LapSpeed*seconds, 360)
}
