// Package analysis post-processes MD output.
//
//   - [Summarize]: mean, spread and range of thermodynamic columns, and the
//     total-energy drift rate from a least-squares fit
//   - [MSD]: mean squared displacement over all time origins, and the
//     self-diffusion coefficient from its slope
//   - [VibrationalSpectrum]: power spectrum of the velocity autocorrelation
//
// Time is in ps throughout; frequencies come out in THz.
package analysis
