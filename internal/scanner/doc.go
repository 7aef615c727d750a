// Package scanner turns a live frame feed into accepted card scans.
//
// # Pipeline
//
// A [FrameSource] publishes frames into a [FrameSlot]. The slot holds only the
// most recent frame: publishing overwrites, readers take a snapshot, and
// intermediate frames are dropped. Recency beats completeness here.
//
// A [Loop] runs two decode passes on independent tickers against that slot:
//
//   - the primary pass (default every 100ms) decodes the frame as-is and, on a
//     miss, its inverted luminance ([StrategyNormal], [StrategyInvertedBuiltin]);
//   - the fallback pass (default every 300ms) inverts every pixel channel
//     manually and decodes with inversion disabled ([StrategyInvertedManual]),
//     catching light-on-dark cards the built-in inversion misses.
//
// Decode failures are never errors. Camera noise and motion blur make most
// frames unreadable, so a miss just means "no result this cycle".
//
// # Gate
//
// Both passes feed one channel that a single goroutine drains into a [Gate].
// The gate drops payloads that are not track references, enforces a global
// cooldown between accepted scans, and suppresses a repeat of the same payload
// for twice the cooldown. A card held in frame decodes dozens of times per
// second across both passes; only the first read becomes a [ScanEvent].
//
// Results from the two passes are gated independently, so a pair landing
// exactly on a cooldown boundary can let one extra event through.
//
// # Shutdown
//
// [Loop.Stop] cancels both tickers and waits for them before closing the frame
// source, so no pass ever reads from a released camera.
package scanner
