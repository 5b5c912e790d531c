package classifier

import "formcoach/internal/domain"

// ExtractKeypoints flattens the frame into the fixed-order feature
// vector the models were trained on: [x, y, z, visibility] per joint, in
// the declared joint order. Joints the frame does not contain contribute
// four zeros, mirroring the low-visibility placeholder used upstream.
func ExtractKeypoints(frame domain.Frame, joints []domain.JointName) []float64 {
	features := make([]float64, 0, len(joints)*4)
	for _, j := range joints {
		if lm, ok := frame.Joint(j); ok {
			features = append(features, lm.X, lm.Y, lm.Z, lm.Visibility)
		} else {
			features = append(features, 0, 0, 0, 0)
		}
	}
	return features
}
