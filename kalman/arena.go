package kalman

import "github.com/BryanSouza91/WingNav/matrix"

// arena holds every intermediate of one predict/update cycle. Buffers are
// allocated once by New and named after the quantity they hold, so a cycle
// never allocates.
type arena struct {
	// predict
	u     *matrix.Vector // (3x1) control input
	fx    *matrix.Vector // (6x1) F*x
	bu    *matrix.Vector // (6x1) B*u
	xPred *matrix.Vector // (6x1) predicted state
	fp    *matrix.Matrix // (6x6) F*P
	fpft  *matrix.Matrix // (6x6) F*P*F'
	pPred *matrix.Matrix // (6x6) predicted covariance

	// update
	z    *matrix.Vector // (3x1) measurement
	hx   *matrix.Vector // (3x1) H*x
	y    *matrix.Vector // (3x1) residual
	r    *matrix.Matrix // (3x3) measurement noise for this update
	hp   *matrix.Matrix // (3x6) H*P
	hpht *matrix.Matrix // (3x3) H*P*H'
	s    *matrix.Matrix // (3x3) residual covariance
	sInv *matrix.Matrix // (3x3) inverse residual covariance
	pht  *matrix.Matrix // (6x3) P*H'
	k    *matrix.Matrix // (6x3) Kalman gain
	ky   *matrix.Vector // (6x1) K*y
	xNew *matrix.Vector // (6x1) posterior state
	kh   *matrix.Matrix // (6x6) K*H
	ikh  *matrix.Matrix // (6x6) I-K*H
	pNew *matrix.Matrix // (6x6) posterior covariance
}

func newArena() *arena {
	return &arena{
		u:     matrix.NewVector(dimControl),
		fx:    matrix.NewVector(dimState),
		bu:    matrix.NewVector(dimState),
		xPred: matrix.NewVector(dimState),
		fp:    matrix.New(dimState, dimState),
		fpft:  matrix.New(dimState, dimState),
		pPred: matrix.New(dimState, dimState),

		z:    matrix.NewVector(dimMeas),
		hx:   matrix.NewVector(dimMeas),
		y:    matrix.NewVector(dimMeas),
		r:    matrix.New(dimMeas, dimMeas),
		hp:   matrix.New(dimMeas, dimState),
		hpht: matrix.New(dimMeas, dimMeas),
		s:    matrix.New(dimMeas, dimMeas),
		sInv: matrix.New(dimMeas, dimMeas),
		pht:  matrix.New(dimState, dimMeas),
		k:    matrix.New(dimState, dimMeas),
		ky:   matrix.NewVector(dimState),
		xNew: matrix.NewVector(dimState),
		kh:   matrix.New(dimState, dimState),
		ikh:  matrix.New(dimState, dimState),
		pNew: matrix.New(dimState, dimState),
	}
}
