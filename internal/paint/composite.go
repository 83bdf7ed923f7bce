package paint

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// inkThreshold is the grey level above which a canvas pixel counts as ink.
const inkThreshold = 50

// MarkerRadius is the radius of the fingertip marker drawn in draw mode.
const MarkerRadius = 15

// Composite overlays canvas onto frame in place. Pixels where the canvas
// holds ink replace the frame; everywhere else the frame shows through.
// Both Mats must be 3-channel BGR of the same size.
func Composite(frame *gocv.Mat, canvas gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(canvas, &gray, gocv.ColorBGRToGray)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(gray, &mask, inkThreshold, 255, gocv.ThresholdBinaryInv)

	maskBGR := gocv.NewMat()
	defer maskBGR.Close()
	gocv.CvtColor(mask, &maskBGR, gocv.ColorGrayToBGR)

	gocv.BitwiseAnd(*frame, maskBGR, frame)
	gocv.BitwiseOr(*frame, canvas, frame)
}

// DrawMarker draws a filled circle at the fingertip on frame.
func DrawMarker(frame *gocv.Mat, tip image.Point, c color.RGBA) {
	gocv.Circle(frame, tip, MarkerRadius, c, -1)
}
