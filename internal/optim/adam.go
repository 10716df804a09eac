package optim

import (
	"fmt"
	"math"

	"github.com/siamics/siamics/internal/parallel"
	"github.com/siamics/siamics/internal/schedule"
	"github.com/siamics/siamics/internal/tensor"
	"github.com/siamics/siamics/internal/tree"
)

// AdamState holds the moment estimates of ScaleByAdam.
type AdamState struct {
	Count int        // Updates applied so far
	Mu    *tree.Tree // First moment estimates
	Nu    *tree.Tree // Second moment estimates
}

// AdamConfig holds configuration for ScaleByAdam.
type AdamConfig struct {
	Betas   [2]float64 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps     float64    // Term added to the denominator (default: 1e-8)
	EpsRoot float64    // Term added inside the square root (default: 0)
}

func (c AdamConfig) withDefaults() AdamConfig {
	if c.Betas[0] == 0 {
		c.Betas[0] = 0.9
	}
	if c.Betas[1] == 0 {
		c.Betas[1] = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
	return c
}

type scaleByAdam struct {
	cfg AdamConfig
}

// ScaleByAdam rescales updates by the Adam moment estimates.
//
// Update rule:
//
//	m_t   = beta1 * m_{t-1} + (1-beta1) * g        // First moment
//	v_t   = beta2 * v_{t-1} + (1-beta2) * g²       // Second moment
//	m_hat = m_t / (1 - beta1^t)                    // Bias correction
//	v_hat = v_t / (1 - beta2^t)                    // Bias correction
//	u     = m_hat / (sqrt(v_hat + eps_root) + eps)
//
// The result is a descent direction; combine with ScaleByLearningRate to get
// parameter deltas.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
func ScaleByAdam(config AdamConfig) Transform {
	return scaleByAdam{cfg: config.withDefaults()}
}

func (a scaleByAdam) Init(params *tree.Tree) (State, error) {
	if params == nil {
		return nil, ErrParamsRequired
	}
	b1, b2 := a.cfg.Betas[0], a.cfg.Betas[1]
	if b1 < 0 || b1 >= 1 || b2 < 0 || b2 >= 1 {
		return nil, fmt.Errorf("%w: adam betas must be in [0, 1), got %v", ErrInvalidConfig, a.cfg.Betas)
	}
	return AdamState{
		Mu: tree.ZerosLike(params),
		Nu: tree.ZerosLike(params),
	}, nil
}

func (a scaleByAdam) Update(updates *tree.Tree, state State, _ *tree.Tree) (*tree.Tree, State, error) {
	st, err := stateAs[AdamState](state, "scale by adam")
	if err != nil {
		return nil, nil, err
	}
	if st.Mu == nil || st.Nu == nil {
		return nil, nil, fmt.Errorf("%w: adam moments not initialized", ErrInvalidState)
	}

	count := st.Count + 1
	b1, b2 := a.cfg.Betas[0], a.cfg.Betas[1]
	biasCorrection1 := 1 - math.Pow(b1, float64(count))
	biasCorrection2 := 1 - math.Pow(b2, float64(count))

	var mus, nus []*tensor.Tensor
	out, err := tree.MapN(func(leaves []*tensor.Tensor) (*tensor.Tensor, error) {
		u, m, v, err := a.updateLeaf(leaves[0], leaves[1], leaves[2], biasCorrection1, biasCorrection2)
		if err != nil {
			return nil, err
		}
		mus = append(mus, m)
		nus = append(nus, v)
		return u, nil
	}, updates, st.Mu, st.Nu)
	if err != nil {
		return nil, nil, fmt.Errorf("scale by adam: %w", err)
	}

	mu, err := st.Mu.Unflatten(mus)
	if err != nil {
		return nil, nil, err
	}
	nu, err := st.Nu.Unflatten(nus)
	if err != nil {
		return nil, nil, err
	}
	return out, AdamState{Count: count, Mu: mu, Nu: nu}, nil
}

// updateLeaf computes the Adam direction and new moments for one leaf.
func (a scaleByAdam) updateLeaf(g, mu, nu *tensor.Tensor, biasCorrection1, biasCorrection2 float64) (u, m, v *tensor.Tensor, err error) {
	if !g.Shape().Equal(mu.Shape()) || !g.Shape().Equal(nu.Shape()) {
		return nil, nil, nil, fmt.Errorf("%w: gradient %v, moments %v", tensor.ErrShapeMismatch, g.Shape(), mu.Shape())
	}
	b1, b2 := a.cfg.Betas[0], a.cfg.Betas[1]
	eps, epsRoot := a.cfg.Eps, a.cfg.EpsRoot

	u, m, v = g.ZerosLike(), g.ZerosLike(), g.ZerosLike()
	gData, muData, nuData := g.Data(), mu.Data(), nu.Data()
	uData, mData, vData := u.Data(), m.Data(), v.Data()

	parallel.ForChunks(len(gData), func(s, e int) {
		for i := s; i < e; i++ {
			grad := gData[i]
			mData[i] = b1*muData[i] + (1-b1)*grad
			vData[i] = b2*nuData[i] + (1-b2)*grad*grad

			mHat := mData[i] / biasCorrection1
			vHat := vData[i] / biasCorrection2
			uData[i] = mHat / (math.Sqrt(vHat+epsRoot) + eps)
		}
	}, tensor.Parallel)
	return u, m, v, nil
}

// AdamWConfig holds configuration for AdamW.
type AdamWConfig struct {
	AdamConfig
	WeightDecay float64 // Decoupled weight decay (default: 1e-4; negative disables)
}

// DefaultWeightDecay is AdamW's weight decay when none is configured.
const DefaultWeightDecay = 1e-4

// AdamW returns Adam with decoupled weight decay driven by the lr schedule:
//
//	Chain(ScaleByAdam, AddDecayedWeights(weightDecay), ScaleByLearningRate(lr))
//
// Reference: "Decoupled Weight Decay Regularization" (Loshchilov & Hutter, 2019)
func AdamW(lr schedule.Schedule, config AdamWConfig) Transform {
	wd := config.WeightDecay
	switch {
	case wd == 0:
		wd = DefaultWeightDecay
	case wd < 0:
		wd = 0
	}
	return Chain(
		ScaleByAdam(config.AdamConfig),
		AddDecayedWeights(wd),
		ScaleByLearningRate(lr),
	)
}
