// Package imaging provides the low-level image operations used to read
// answer sheets: decoding and caching photos, vision primitives behind the
// Engine interface, contour geometry, perspective warping and annotated
// previews.
//
// All operations work with standard Go image types and use a coordinate
// system where (0,0) is at the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive, as in image.Rectangle
//
// Sub-pixel positions (centroids, warped corners) use PointF.
//
// # Engines
//
// Two Engine implementations exist:
//   - NativeEngine: pure Go, built on bild for grayscale conversion, blur and
//     fixed thresholds, with contour tracing and warping implemented here
//   - OpenCVEngine: gocv bindings, compiled only with the "gocv" build tag
//
// Both honour the same conventions: binary images hold 255 for foreground
// (ink) and 0 for background (paper), and returned images start at (0,0).
//
// # Thread Safety
//
// ImageCache and both engines are safe for concurrent use. Functions that
// take an image never modify it, with the exception of ClearBorder which
// works in place on a threshold result.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside image bounds or with zero area
//   - Degenerate quadrilaterals that admit no perspective transform
//   - File I/O and decoding errors
package imaging
