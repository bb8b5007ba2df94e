package detour_crowd

import (
	"math"

	"github.com/gorustyt/navcore/common"
)

const (
	DT_MAX_PATTERN_DIVS  = 32 ///< Max numver of adaptive divs.
	DT_MAX_PATTERN_RINGS = 4  ///< Max number of adaptive rings.
)

type dtObstacleCircle struct {
	p      [3]float32 ///< Position of the obstacle
	vel    [3]float32 ///< Velocity of the obstacle
	dvel   [3]float32 ///< Velocity of the obstacle
	rad    float32    ///< Radius of the obstacle
	dp, np [3]float32 ///< Use for side selection during sampling.
}

type dtObstacleSegment struct {
	p, q  [3]float32 ///< End points of the obstacle segment
	touch bool
}

// DtObstacleAvoidanceDebugData records every velocity sample and its penalties.
type DtObstacleAvoidanceDebugData struct {
	m_maxSamples int
	m_vel        []float32
	m_ssize      []float32
	m_pen        []float32
	m_vpen       []float32
	m_vcpen      []float32
	m_spen       []float32
	m_tpen       []float32
}

func NewDtObstacleAvoidanceDebugData(maxSamples int) *DtObstacleAvoidanceDebugData {
	return &DtObstacleAvoidanceDebugData{m_maxSamples: maxSamples}
}

func (d *DtObstacleAvoidanceDebugData) Reset() {
	d.m_vel = d.m_vel[:0]
	d.m_ssize = d.m_ssize[:0]
	d.m_pen = d.m_pen[:0]
	d.m_vpen = d.m_vpen[:0]
	d.m_vcpen = d.m_vcpen[:0]
	d.m_spen = d.m_spen[:0]
	d.m_tpen = d.m_tpen[:0]
}

func (d *DtObstacleAvoidanceDebugData) addSample(vel []float32, ssize, pen, vpen, vcpen, spen, tpen float32) {
	if len(d.m_pen) >= d.m_maxSamples {
		return
	}
	d.m_vel = append(d.m_vel, vel[0], vel[1], vel[2])
	d.m_ssize = append(d.m_ssize, ssize)
	d.m_pen = append(d.m_pen, pen)
	d.m_vpen = append(d.m_vpen, vpen)
	d.m_vcpen = append(d.m_vcpen, vcpen)
	d.m_spen = append(d.m_spen, spen)
	d.m_tpen = append(d.m_tpen, tpen)
}

func normalizeArray(arr []float32) {
	// Normalize penaly range.
	minPen := float32(math.MaxFloat32)
	maxPen := float32(-math.MaxFloat32)
	for _, v := range arr {
		minPen = min(minPen, v)
		maxPen = max(maxPen, v)
	}
	penRange := maxPen - minPen
	s := float32(1)
	if penRange > 0.001 {
		s = 1.0 / penRange
	}
	for i := range arr {
		arr[i] = common.Clamp((arr[i]-minPen)*s, 0.0, 1.0)
	}
}

// NormalizeSamples rescales every penalty series into [0, 1].
func (d *DtObstacleAvoidanceDebugData) NormalizeSamples() {
	normalizeArray(d.m_pen)
	normalizeArray(d.m_vpen)
	normalizeArray(d.m_vcpen)
	normalizeArray(d.m_spen)
	normalizeArray(d.m_tpen)
}

func (d *DtObstacleAvoidanceDebugData) GetSampleCount() int { return len(d.m_pen) }
func (d *DtObstacleAvoidanceDebugData) GetSampleVelocity(i int) []float32 {
	return d.m_vel[i*3 : i*3+3]
}
func (d *DtObstacleAvoidanceDebugData) GetSampleSize(i int) float32    { return d.m_ssize[i] }
func (d *DtObstacleAvoidanceDebugData) GetSamplePenalty(i int) float32 { return d.m_pen[i] }
func (d *DtObstacleAvoidanceDebugData) GetSampleDesiredVelocityPenalty(i int) float32 {
	return d.m_vpen[i]
}
func (d *DtObstacleAvoidanceDebugData) GetSampleCurrentVelocityPenalty(i int) float32 {
	return d.m_vcpen[i]
}
func (d *DtObstacleAvoidanceDebugData) GetSamplePreferredSidePenalty(i int) float32 {
	return d.m_spen[i]
}
func (d *DtObstacleAvoidanceDebugData) GetSampleCollisionTimePenalty(i int) float32 {
	return d.m_tpen[i]
}

type DtObstacleAvoidanceParams struct {
	VelBias       float32
	WeightDesVel  float32
	WeightCurVel  float32
	WeightSide    float32
	WeightToi     float32
	HorizTime     float32
	GridSize      int ///< grid
	AdaptiveDivs  int ///< adaptive
	AdaptiveRings int ///< adaptive
	AdaptiveDepth int ///< adaptive
}

// DefaultObstacleAvoidanceParams returns the medium quality adaptive preset.
func DefaultObstacleAvoidanceParams() DtObstacleAvoidanceParams {
	return DtObstacleAvoidanceParams{
		VelBias:       0.4,
		WeightDesVel:  2.0,
		WeightCurVel:  0.75,
		WeightSide:    0.75,
		WeightToi:     2.5,
		HorizTime:     2.5,
		GridSize:      33,
		AdaptiveDivs:  7,
		AdaptiveRings: 2,
		AdaptiveDepth: 5,
	}
}

// DtObstacleAvoidanceQuery samples candidate velocities against nearby circles and walls.
type DtObstacleAvoidanceQuery struct {
	m_params       DtObstacleAvoidanceParams
	m_invHorizTime float32
	m_vmax         float32
	m_invVmax      float32

	m_maxCircles  int
	m_circles     []dtObstacleCircle
	m_maxSegments int
	m_segments    []dtObstacleSegment
}

func NewDtObstacleAvoidanceQuery(maxCircles, maxSegments int) *DtObstacleAvoidanceQuery {
	return &DtObstacleAvoidanceQuery{
		m_maxCircles:  maxCircles,
		m_circles:     make([]dtObstacleCircle, 0, maxCircles),
		m_maxSegments: maxSegments,
		m_segments:    make([]dtObstacleSegment, 0, maxSegments),
	}
}

func (d *DtObstacleAvoidanceQuery) Reset() {
	d.m_circles = d.m_circles[:0]
	d.m_segments = d.m_segments[:0]
}

func (d *DtObstacleAvoidanceQuery) AddCircle(pos []float32, rad float32, vel, dvel []float32) {
	if len(d.m_circles) >= d.m_maxCircles {
		return
	}
	var cir dtObstacleCircle
	common.Vcopy(cir.p[:], pos)
	cir.rad = rad
	common.Vcopy(cir.vel[:], vel)
	common.Vcopy(cir.dvel[:], dvel)
	d.m_circles = append(d.m_circles, cir)
}

func (d *DtObstacleAvoidanceQuery) AddSegment(p, q []float32) {
	if len(d.m_segments) >= d.m_maxSegments {
		return
	}
	var seg dtObstacleSegment
	common.Vcopy(seg.p[:], p)
	common.Vcopy(seg.q[:], q)
	d.m_segments = append(d.m_segments, seg)
}

func (d *DtObstacleAvoidanceQuery) GetObstacleCircleCount() int  { return len(d.m_circles) }
func (d *DtObstacleAvoidanceQuery) GetObstacleSegmentCount() int { return len(d.m_segments) }

func sweepCircleCircle(c0 []float32, r0 float32, v, c1 []float32, r1 float32) (tmin, tmax float32, ok bool) {
	const EPS = 0.0001
	var s [3]float32
	common.Vsub(s[:], c1, c0)
	r := r0 + r1
	c := common.Vdot2D(s[:], s[:]) - r*r
	a := common.Vdot2D(v, v)
	if a < EPS {
		return 0, 0, false // not moving
	}

	// Overlap, calc time to exit.
	b := common.Vdot2D(v, s[:])
	d := b*b - a*c
	if d < 0.0 {
		return 0, 0, false // no intersection.
	}
	a = 1.0 / a
	rd := float32(math.Sqrt(float64(d)))
	return (b - rd) * a, (b + rd) * a, true
}

func isectRaySeg(ap, u, bp, bq []float32) (t float32, ok bool) {
	var v, w [3]float32
	common.Vsub(v[:], bq, bp)
	common.Vsub(w[:], ap, bp)
	d := common.Vperp2D(u, v[:])
	if common.Abs(d) < 1e-6 {
		return 0, false
	}
	d = 1.0 / d
	t = common.Vperp2D(v[:], w[:]) * d
	if t < 0 || t > 1 {
		return 0, false
	}
	s := common.Vperp2D(u, w[:]) * d
	if s < 0 || s > 1 {
		return 0, false
	}
	return t, true
}

func (d *DtObstacleAvoidanceQuery) prepare(pos, dvel []float32) {
	// Prepare obstacles
	orig := []float32{0, 0, 0}
	for i := range d.m_circles {
		cir := &d.m_circles[i]

		// Side
		var dv [3]float32
		common.Vsub(cir.dp[:], cir.p[:], pos)
		common.Vnormalize(cir.dp[:])
		common.Vsub(dv[:], cir.dvel[:], dvel)

		a := common.TriArea2D(orig, cir.dp[:], dv[:])
		if a < 0.01 {
			cir.np[0] = -cir.dp[2]
			cir.np[2] = cir.dp[0]
		} else {
			cir.np[0] = cir.dp[2]
			cir.np[2] = -cir.dp[0]
		}
	}

	for i := range d.m_segments {
		seg := &d.m_segments[i]

		// Precalc if the agent is really close to the segment.
		const r = 0.01
		distSqr, _ := common.DistancePtSegSqr2D(pos, seg.p[:], seg.q[:])
		seg.touch = distSqr < common.Sqr(float32(r))
	}
}

// processSample returns the collision penalty of velocity vcand.
// Sampling stops early once the penalty cannot beat minPenalty.
func (d *DtObstacleAvoidanceQuery) processSample(vcand []float32, cs float32,
	pos []float32, rad float32, vel, dvel []float32, minPenalty float32,
	debug *DtObstacleAvoidanceDebugData) float32 {
	// penalty for straying away from the desired and current velocities
	vpen := d.m_params.WeightDesVel * (common.Vdist2D(vcand, dvel) * d.m_invVmax)
	vcpen := d.m_params.WeightCurVel * (common.Vdist2D(vcand, vel) * d.m_invVmax)

	// find the threshold hit time to bail out based on the early out penalty
	// (see how the penalty is calculated below to understand)
	minPen := minPenalty - vpen - vcpen
	tThresold := (d.m_params.WeightToi/minPen - 0.1) * d.m_params.HorizTime
	if tThresold-d.m_params.HorizTime > -math.SmallestNonzeroFloat32 {
		return minPenalty // already too much
	}

	// Find min time of impact and exit amongst all obstacles.
	tmin := d.m_params.HorizTime
	side := float32(0)
	nside := 0

	for i := range d.m_circles {
		cir := &d.m_circles[i]

		// RVO
		var vab [3]float32
		common.Vscale(vab[:], vcand, 2)
		common.Vsub(vab[:], vab[:], vel)
		common.Vsub(vab[:], vab[:], cir.vel[:])

		// Side
		side += common.Clamp(min(common.Vdot2D(cir.dp[:], vab[:])*0.5+0.5, common.Vdot2D(cir.np[:], vab[:])*2), 0.0, 1.0)
		nside++

		htmin, htmax, ok := sweepCircleCircle(pos, rad, vab[:], cir.p[:], cir.rad)
		if !ok {
			continue
		}

		// Handle overlapping obstacles.
		if htmin < 0.0 && htmax > 0.0 {
			// Avoid more when overlapped.
			htmin = -htmin * 0.5
		}

		if htmin >= 0.0 {
			// The closest obstacle is somewhere ahead of us, keep track of nearest obstacle.
			if htmin < tmin {
				tmin = htmin
				if tmin < tThresold {
					return minPenalty
				}
			}
		}
	}

	for i := range d.m_segments {
		seg := &d.m_segments[i]
		var htmin float32

		if seg.touch {
			// Special case when the agent is very close to the segment.
			var sdir, snorm [3]float32
			common.Vsub(sdir[:], seg.q[:], seg.p[:])
			snorm[0] = -sdir[2]
			snorm[2] = sdir[0]
			// If the velocity is pointing towards the segment, no collision.
			if common.Vdot2D(snorm[:], vcand) < 0.0 {
				continue
			}
			// Else immediate collision.
			htmin = 0.0
		} else {
			t, ok := isectRaySeg(pos, vcand, seg.p[:], seg.q[:])
			if !ok {
				continue
			}
			htmin = t
		}

		// Avoid less when facing walls.
		htmin *= 2.0

		// The closest obstacle is somewhere ahead of us, keep track of nearest obstacle.
		if htmin < tmin {
			tmin = htmin
			if tmin < tThresold {
				return minPenalty
			}
		}
	}

	// Normalize side bias, to prevent it dominating too much.
	if nside != 0 {
		side /= float32(nside)
	}

	spen := d.m_params.WeightSide * side
	tpen := d.m_params.WeightToi * (1.0 / (0.1 + tmin*d.m_invHorizTime))

	penalty := vpen + vcpen + spen + tpen

	// Store different penalties for debug viewing
	if debug != nil {
		debug.addSample(vcand, cs, penalty, vpen, vcpen, spen, tpen)
	}
	return penalty
}

func (d *DtObstacleAvoidanceQuery) setup(pos, dvel []float32, vmax float32, params *DtObstacleAvoidanceParams, debug *DtObstacleAvoidanceDebugData) {
	d.prepare(pos, dvel)
	d.m_params = *params
	d.m_invHorizTime = 1.0 / d.m_params.HorizTime
	d.m_vmax = vmax
	d.m_invVmax = math.MaxFloat32
	if vmax > 0 {
		d.m_invVmax = 1.0 / vmax
	}
	if debug != nil {
		debug.Reset()
	}
}

// SampleVelocityGrid picks the cheapest velocity on a regular grid around the biased desired velocity.
func (d *DtObstacleAvoidanceQuery) SampleVelocityGrid(pos []float32, rad, vmax float32, vel, dvel, nvel []float32,
	params *DtObstacleAvoidanceParams, debug *DtObstacleAvoidanceDebugData) int {
	d.setup(pos, dvel, vmax, params, debug)
	common.Vset(nvel, 0, 0, 0)

	cvx := dvel[0] * d.m_params.VelBias
	cvz := dvel[2] * d.m_params.VelBias
	cs := vmax * 2 * (1 - d.m_params.VelBias) / float32(d.m_params.GridSize-1)
	half := float32(d.m_params.GridSize-1) * cs * 0.5

	minPenalty := float32(math.MaxFloat32)
	ns := 0

	for y := 0; y < d.m_params.GridSize; y++ {
		for x := 0; x < d.m_params.GridSize; x++ {
			vcand := []float32{cvx + float32(x)*cs - half, 0, cvz + float32(y)*cs - half}
			if common.Sqr(vcand[0])+common.Sqr(vcand[2]) > common.Sqr(vmax+cs/2) {
				continue
			}

			penalty := d.processSample(vcand, cs, pos, rad, vel, dvel, minPenalty, debug)
			ns++
			if penalty < minPenalty {
				minPenalty = penalty
				common.Vcopy(nvel, vcand)
			}
		}
	}
	return ns
}

// vector normalization that ignores the y-component.
func dtNormalize2D(v []float32) {
	d := float32(math.Sqrt(float64(v[0]*v[0] + v[2]*v[2])))
	if d == 0 {
		return
	}
	d = 1.0 / d
	v[0] *= d
	v[2] *= d
}

// rotates v around the y axis.
func dtRotate2D(dest, v []float32, ang float32) {
	c := float32(math.Cos(float64(ang)))
	s := float32(math.Sin(float64(ang)))
	dest[0] = v[0]*c - v[2]*s
	dest[2] = v[0]*s + v[2]*c
	dest[1] = v[1]
}

// SampleVelocityAdaptive refines a ring pattern aligned to the desired velocity over several passes.
func (d *DtObstacleAvoidanceQuery) SampleVelocityAdaptive(pos []float32, rad, vmax float32, vel, dvel, nvel []float32,
	params *DtObstacleAvoidanceParams, debug *DtObstacleAvoidanceDebugData) int {
	d.setup(pos, dvel, vmax, params, debug)
	common.Vset(nvel, 0, 0, 0)

	// Build sampling pattern aligned to desired velocity.
	var pat [(DT_MAX_PATTERN_DIVS*DT_MAX_PATTERN_RINGS + 1) * 2]float32
	npat := 0

	nd := common.Clamp(d.m_params.AdaptiveDivs, 1, DT_MAX_PATTERN_DIVS)
	nr := common.Clamp(d.m_params.AdaptiveRings, 1, DT_MAX_PATTERN_RINGS)
	depth := d.m_params.AdaptiveDepth
	da := (1.0 / float32(nd)) * math.Pi * 2
	ca := float32(math.Cos(float64(da)))
	sa := float32(math.Sin(float64(da)))

	// desired direction
	var ddir [6]float32
	common.Vcopy(ddir[:], dvel)
	dtNormalize2D(ddir[:])
	dtRotate2D(ddir[3:], ddir[:], da*0.5) // rotated by da/2

	// Always add sample at zero
	pat[0] = 0
	pat[1] = 0
	npat++

	for j := 0; j < nr; j++ {
		r := float32(nr-j) / float32(nr)
		pat[npat*2+0] = ddir[(j%2)*3] * r
		pat[npat*2+1] = ddir[(j%2)*3+2] * r
		last1 := npat * 2
		last2 := last1
		npat++

		for i := 1; i < nd-1; i += 2 {
			// get next point on the "right" (rotate CW)
			pat[npat*2+0] = pat[last1]*ca + pat[last1+1]*sa
			pat[npat*2+1] = -pat[last1]*sa + pat[last1+1]*ca
			// get next point on the "left" (rotate CCW)
			pat[npat*2+2] = pat[last2]*ca - pat[last2+1]*sa
			pat[npat*2+3] = pat[last2]*sa + pat[last2+1]*ca

			last1 = npat * 2
			last2 = last1 + 2
			npat += 2
		}

		if nd&1 == 0 {
			pat[npat*2+0] = pat[last2]*ca - pat[last2+1]*sa
			pat[npat*2+1] = pat[last2]*sa + pat[last2+1]*ca
			npat++
		}
	}

	// Start sampling.
	cr := vmax * (1.0 - d.m_params.VelBias)
	res := []float32{dvel[0] * d.m_params.VelBias, 0, dvel[2] * d.m_params.VelBias}
	ns := 0

	for k := 0; k < depth; k++ {
		minPenalty := float32(math.MaxFloat32)
		var bvel [3]float32

		for i := 0; i < npat; i++ {
			vcand := []float32{res[0] + pat[i*2+0]*cr, 0, res[2] + pat[i*2+1]*cr}
			if common.Sqr(vcand[0])+common.Sqr(vcand[2]) > common.Sqr(vmax+0.001) {
				continue
			}

			penalty := d.processSample(vcand, cr/10, pos, rad, vel, dvel, minPenalty, debug)
			ns++
			if penalty < minPenalty {
				minPenalty = penalty
				bvel = [3]float32{vcand[0], vcand[1], vcand[2]}
			}
		}

		common.Vcopy(res, bvel[:])
		cr *= 0.5
	}

	common.Vcopy(nvel, res)
	return ns
}
