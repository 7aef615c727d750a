// Package camera provides [scanner.FrameSource] implementations.
//
// [FFmpeg] captures a webcam through an ffmpeg subprocess that writes raw
// RGBA frames to stdout; each full frame is published to a latest-frame slot
// and older ones are dropped. [Still] serves a single decoded image file and
// is used for dry runs and for decoding card images directly.
package camera
