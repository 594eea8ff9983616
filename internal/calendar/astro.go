package calendar

import "math"

const (
	dr = math.Pi / 180

	// SynodicMonth is the mean length of a lunation in days.
	SynodicMonth = 29.530588853

	// NewMoonEpoch is the Julian date of the new moon of 1900-01-01,
	// lunation index k = 0.
	NewMoonEpoch = 2415021.076998695
)

// SunLongitude returns the apparent geocentric ecliptic longitude of the sun
// in degrees, in [0, 360), at Julian date jd (UT).
func SunLongitude(jd float64) float64 {
	T := (jd - J2000) / 36525
	T2 := T * T

	// mean anomaly and mean longitude, degrees
	M := 357.52910 + 35999.05030*T - 0.0001559*T2 - 0.00000048*T*T2
	L0 := 280.46645 + 36000.76983*T + 0.0003032*T2

	// equation of center
	DL := (1.914600 - 0.004817*T - 0.000014*T2) * math.Sin(dr*M)
	DL += (0.019993-0.000101*T)*math.Sin(dr*2*M) + 0.000290*math.Sin(dr*3*M)

	// nutation and aberration
	omega := 125.04 - 1934.136*T
	L := L0 + DL - 0.00569 - 0.00478*math.Sin(omega*dr)

	L = math.Mod(L, 360)
	if L < 0 {
		L += 360
	}
	return L
}

// SunLongitudeIndex returns floor(SunLongitude(jd) / 30), the index 0..11 of
// the 30-degree sector the sun is in. Index 9 (270°) is the winter solstice.
func SunLongitudeIndex(jd float64) int {
	idx := int(SunLongitude(jd) / 30)
	if idx > 11 {
		idx = 11
	}
	return idx
}

// localMidnight returns the UT Julian date of 00:00 reference-zone time on
// the civil day jdn.
func localMidnight(jdn int) float64 {
	return float64(jdn) - 0.5 - TimeZoneOffset/24.0
}

// sunIndexAtDay is the sun sector at the start of the civil day jdn.
func sunIndexAtDay(jdn int) int {
	return SunLongitudeIndex(localMidnight(jdn))
}

// NewMoon returns the Julian date (UT) of the k-th new moon after the
// 1900-01-01 epoch. The series is the truncated one from Meeus,
// Astronomical Algorithms, with a ΔT correction.
func NewMoon(k int) float64 {
	kf := float64(k)
	T := kf / 1236.85
	T2 := T * T
	T3 := T2 * T

	jd1 := 2415020.75933 + 29.53058868*kf + 0.0001178*T2 - 0.000000155*T3
	jd1 += 0.00033 * math.Sin((166.56+132.87*T-0.009173*T2)*dr)

	M := 359.2242 + 29.10535608*kf - 0.0000333*T2 - 0.00000347*T3   // sun's mean anomaly
	Mpr := 306.0253 + 385.81691806*kf + 0.0107306*T2 + 0.00001236*T3 // moon's mean anomaly
	F := 21.2964 + 390.67050646*kf - 0.0016528*T2 - 0.00000239*T3    // moon's argument of latitude

	C1 := (0.1734-0.000393*T)*math.Sin(M*dr) + 0.0021*math.Sin(2*dr*M)
	C1 = C1 - 0.4068*math.Sin(Mpr*dr) + 0.0161*math.Sin(dr*2*Mpr)
	C1 = C1 - 0.0004*math.Sin(dr*3*Mpr)
	C1 = C1 + 0.0104*math.Sin(dr*2*F) - 0.0051*math.Sin(dr*(M+Mpr))
	C1 = C1 - 0.0074*math.Sin(dr*(M-Mpr)) + 0.0004*math.Sin(dr*(2*F+M))
	C1 = C1 - 0.0004*math.Sin(dr*(2*F-M)) - 0.0006*math.Sin(dr*(2*F+Mpr))
	C1 = C1 + 0.0010*math.Sin(dr*(2*F-Mpr)) + 0.0005*math.Sin(dr*(2*Mpr+M))

	var deltaT float64
	if T < -11 {
		deltaT = 0.001 + 0.000839*T + 0.0002261*T2 - 0.00000845*T3 - 0.000000081*T*T3
	} else {
		deltaT = -0.000278 + 0.000265*T + 0.000262*T2
	}
	return jd1 + C1 - deltaT
}

// NewMoonDay returns the civil day number, in the reference zone, on which
// the k-th new moon falls.
func NewMoonDay(k int) int {
	return int(math.Floor(NewMoon(k) + 0.5 + TimeZoneOffset/24.0))
}

// LunationAtOrBefore returns the largest k with NewMoonDay(k) <= jdn.
func LunationAtOrBefore(jdn int) int {
	k := int(math.Floor((float64(jdn) - NewMoonEpoch) / SynodicMonth))
	// the mean-period estimate is off by at most one lunation
	for NewMoonDay(k+1) <= jdn {
		k++
	}
	for NewMoonDay(k) > jdn {
		k--
	}
	return k
}
