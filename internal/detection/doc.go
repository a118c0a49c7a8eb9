// Package detection turns a photo of an answer sheet into a list of marks.
//
// It covers two pipeline stages:
//
//   - Rectifier: finds the printed sheet frame in the photo and warps it into
//     a fixed canonical raster (800×1000 by default)
//   - Detector: finds bubble-shaped blobs on the rectified sheet and decides
//     which of them are filled
//
// Both stages delegate pixel work to an imaging.Engine, so the same code
// runs on the pure Go engine or on OpenCV.
//
// # Algorithm Overview
//
// Rectification:
//
//  1. Grayscale, 5×5 Gaussian blur, inverted mean adaptive threshold
//  2. External contours, each simplified with Douglas-Peucker at 2% of its perimeter
//  3. Keep convex quadrilaterals above the minimum area; the largest wins
//  4. Order corners by angle around their centroid and warp
//
// Mark detection:
//
//  1. Fixed inverted threshold at 120 and a cleared edge margin
//  2. External contours with area in [50, 2000] and circularity above 0.5
//  3. Centroid from contour moments; mean brightness in a radius-10 disk
//  4. Filled when that mean is below 100
//
// # Coordinate System
//
// Corners are reported in the coordinates of the photo passed to Rectify.
// Mark positions are in rectified coordinates.
//
// # Determinism
//
// Both stages are pure functions of their input and options. Marks come out
// in raster order of their topmost-leftmost pixel; grouping them into
// questions is left to the grading package.
package detection
