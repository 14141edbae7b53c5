package teleop

import (
	"fmt"
	"math"
)

// Axis indexes a MovementCommand.
type Axis int

const (
	Surge Axis = iota
	Sway
	Heave
	Pitch
	Yaw
	Roll
)

// AxisCount is the number of degrees of freedom in a MovementCommand.
const AxisCount = 6

var axisNames = [AxisCount]string{"surge", "sway", "heave", "pitch", "yaw", "roll"}

func (a Axis) String() string {
	if a < 0 || int(a) >= AxisCount {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// MovementCommand is a six-DOF command in the fixed order surge, sway, heave,
// pitch, yaw, roll. Commands produced by this package keep every axis in [-1,1].
type MovementCommand [AxisCount]float64

// ZeroCommand stops all motion.
var ZeroCommand = MovementCommand{}

// Clamp bounds x to [-1,1]. NaN maps to 0.
func Clamp(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > 1:
		return 1
	case x < -1:
		return -1
	}
	return x
}

// Clamp returns c with every axis clamped.
func (c MovementCommand) Clamp() MovementCommand {
	var out MovementCommand
	for i, v := range c {
		out[i] = Clamp(v)
	}
	return out
}

// Fuse sums a and b element-wise and clamps the result.
func Fuse(a, b MovementCommand) MovementCommand {
	var out MovementCommand
	for i := range out {
		out[i] = Clamp(a[i] + b[i])
	}
	return out
}

// IsZero reports whether every axis is zero.
func (c MovementCommand) IsZero() bool {
	return c == ZeroCommand
}

// Get returns the value of one axis.
func (c MovementCommand) Get(a Axis) float64 {
	return c[a]
}

func (c MovementCommand) String() string {
	return fmt.Sprintf("[surge=%.2f sway=%.2f heave=%.2f pitch=%.2f yaw=%.2f roll=%.2f]",
		c[Surge], c[Sway], c[Heave], c[Pitch], c[Yaw], c[Roll])
}
