// Package viz renders MD runs in the terminal and to image files.
//
//   - [Model]: a Bubble Tea view fed by a [Feed] observer while a run is in
//     progress, with a rotating Braille projection of the cell and live
//     temperature and energy charts
//   - [Picker]: a preset menu for starting runs interactively
//   - [Chart] and [PlotThermo]: asciigraph and gonum/plot output for stored
//     thermo data
//
// # Key Bindings
//
//	Space - Freeze/unfreeze the display (the run continues)
//	T     - Cycle color themes
//	x y z - Rotate the view (shift reverses)
//	+ -   - Zoom
//	?     - Show help overlay
//	Q     - Quit
package viz
