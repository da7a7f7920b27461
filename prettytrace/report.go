package prettytrace

// Report is the outcome of one intercepted failure. It is assembled once
// per failure event, handed to the configured sinks and then dropped;
// nothing persists it.
type Report struct {
	// Frames are ordered outermost first; the last frame is the failure site.
	Frames []FrameSnapshot
	// Summary combines the failure's category and message.
	Summary string
	// Note is non-empty when the frame chain could not be fully reconstructed.
	Note string
	// Text is the rendered report, produced exactly once.
	Text string
}
