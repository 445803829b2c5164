package projection

import (
	"fmt"
	"math"

	"github.com/ctessum/geom/proj"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
	epsln   = 1e-10
)

// polarStereographic builds degree-based transforms for +proj=stere with the
// projection centre on a pole, on the ellipsoid already derived by proj.Parse.
// Scale is set by lat_ts when given, otherwise by k_0.
func polarStereographic(sr *proj.SR) (forward, inverse proj.Transformer, err error) {
	if math.IsNaN(sr.Lat0) || math.Abs(math.Abs(sr.Lat0)-math.Pi/2) > epsln {
		return nil, nil, fmt.Errorf("stereographic projection must be polar, got lat_0=%g", sr.Lat0*rad2deg)
	}
	south := sr.Lat0 < 0

	lon0 := zeroIfNaN(sr.Long0)
	x0, y0 := zeroIfNaN(sr.X0), zeroIfNaN(sr.Y0)
	toMeter := sr.ToMeter
	if math.IsNaN(toMeter) || toMeter == 0 {
		toMeter = 1
	}
	a, e := sr.A, sr.E
	if math.IsNaN(e) {
		e = 0
	}

	// rho = scale * t(lat)
	var scale float64
	latTS := sr.LatTS
	if south {
		latTS = -latTS
	}
	if !math.IsNaN(latTS) && math.Abs(math.Abs(latTS)-math.Pi/2) > epsln {
		sin, cos := math.Sincos(latTS)
		scale = a * msfnz(e, sin, cos) / tsfnz(e, latTS, sin)
	} else {
		k0 := sr.K0
		if math.IsNaN(k0) {
			k0 = 1
		}
		scale = 2 * a * k0 / math.Sqrt(math.Pow(1+e, 1+e)*math.Pow(1-e, 1-e))
	}

	forward = func(lon, lat float64) (float64, float64, error) {
		if math.IsNaN(lon) || math.IsNaN(lat) || lat < -90 || lat > 90 {
			return 0, 0, fmt.Errorf("invalid longitude (%g) or latitude (%g)", lon, lat)
		}
		phi, dlam := lat*deg2rad, (lon*deg2rad - lon0)
		if south {
			phi = -phi
		}
		if math.Abs(phi+math.Pi/2) <= epsln {
			return 0, 0, fmt.Errorf("latitude %g is the antipodal pole", lat)
		}
		rho := scale * tsfnz(e, phi, math.Sin(phi))
		sin, cos := math.Sincos(dlam)
		x := rho * sin
		y := -rho * cos
		if south {
			y = -y
		}
		return (x0 + x) / toMeter, (y0 + y) / toMeter, nil
	}

	inverse = func(x, y float64) (float64, float64, error) {
		dx := x*toMeter - x0
		dy := y*toMeter - y0
		if south {
			dy = -dy
		}
		rho := math.Hypot(dx, dy)
		if rho <= epsln {
			lat := 90.0
			if south {
				lat = -90
			}
			return lon0 * rad2deg, lat, nil
		}
		phi, err := phi2z(e, rho/scale)
		if err != nil {
			return 0, 0, err
		}
		lon := adjustLon(lon0 + math.Atan2(dx, -dy))
		if south {
			phi = -phi
		}
		return lon * rad2deg, phi * rad2deg, nil
	}
	return forward, inverse, nil
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func msfnz(e, sinphi, cosphi float64) float64 {
	con := e * sinphi
	return cosphi / math.Sqrt(1-con*con)
}

func tsfnz(e, phi, sinphi float64) float64 {
	con := e * sinphi
	com := 0.5 * e
	con = math.Pow((1-con)/(1+con), com)
	return math.Tan(0.5*(math.Pi/2-phi)) / con
}

// phi2z inverts tsfnz by fixed-point iteration.
func phi2z(e, ts float64) (float64, error) {
	eccnth := 0.5 * e
	phi := math.Pi/2 - 2*math.Atan(ts)
	for i := 0; i < 15; i++ {
		con := e * math.Sin(phi)
		dphi := math.Pi/2 - 2*math.Atan(ts*math.Pow((1-con)/(1+con), eccnth)) - phi
		phi += dphi
		if math.Abs(dphi) <= epsln {
			return phi, nil
		}
	}
	return 0, fmt.Errorf("latitude iteration did not converge")
}

func adjustLon(x float64) float64 {
	if math.Abs(x) <= math.Pi {
		return x
	}
	return x - math.Copysign(2*math.Pi, x)*math.Floor((math.Abs(x)+math.Pi)/(2*math.Pi))
}
