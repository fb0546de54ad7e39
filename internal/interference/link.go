// Package interference quantifies how strongly an object crossing the main
// beam couples into the receiver.
package interference

import "math"

// fsplConstant is 20*log10(c/(4*pi)) for distances in metres and
// frequencies in hertz.
const fsplConstant = 147.55

// FreeSpacePathLoss returns the path loss in dB over distanceM metres at
// frequencyHz.
func FreeSpacePathLoss(distanceM, frequencyHz float64) float64 {
	return 20*math.Log10(distanceM) + 20*math.Log10(frequencyHz) - fsplConstant
}

// ReceivedPower applies the Friis link budget: EIRP - FSPL + receive gain.
// No atmospheric or polarization losses are modelled.
func ReceivedPower(eirpDBW, distanceM, frequencyHz, gainRxDBI float64) float64 {
	return eirpDBW - FreeSpacePathLoss(distanceM, frequencyHz) + gainRxDBI
}
