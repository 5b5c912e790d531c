// Package analyzer holds the per-exercise state machines. Every
// analyzer consumes landmark frames through one contract and keeps its
// rep counter and auxiliary state across frames until Reset.
package analyzer

import (
	"log"
	"time"

	"formcoach/internal/classifier"
	"formcoach/internal/domain"
)

// Analyzer is the uniform contract over the nine exercise state
// machines. Analyze judges one frame and may mutate analyzer state; it
// never blocks and never panics across the boundary. Reset returns the
// rep counter and all auxiliary state to initial values.
type Analyzer interface {
	Analyze(frame domain.Frame) (*domain.AnalysisResult, *domain.Failure)
	Reset()
}

// Deps carries the capabilities an analyzer may need at construction:
// the model loader for classifier-backed stages, and a clock for the
// analyzers that debounce or integrate over wall time.
type Deps struct {
	Models *classifier.Loader
	Now    func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Now != nil {
		return d.Now
	}
	return time.Now
}

// Factory constructs one analyzer instance for a kind.
type Factory func(Deps) Analyzer

// registry maps each exercise kind to its factory. The dispatch worker
// materializes analyzers lazily through New on first use.
var registry = map[domain.ExerciseKind]Factory{
	domain.ExerciseSquat: func(d Deps) Analyzer {
		return NewSquat(DefaultSquatConfig(), loadModel(d, classifier.SquatModelFile, "squat"))
	},
	domain.ExerciseBicep: func(d Deps) Analyzer {
		model := loadModel(d, classifier.BicepModelFile, "bicep")
		scaler := loadScaler(d, classifier.InputScalerFile, "bicep")
		return NewBicep(DefaultBicepConfig(), model, scaler)
	},
	domain.ExerciseLunge: func(d Deps) Analyzer {
		model := loadModel(d, classifier.LungeStageFile, "lunge")
		scaler := loadScaler(d, classifier.InputScalerFile, "lunge")
		return NewLunge(DefaultLungeConfig(), model, scaler)
	},
	domain.ExercisePlank: func(d Deps) Analyzer {
		model := loadModel(d, classifier.PlankModelFile, "plank")
		scaler := loadScaler(d, classifier.PlankScalerFile, "plank")
		return NewPlank(DefaultPlankConfig(), model, scaler, d.clock())
	},
	domain.ExerciseSitup: func(d Deps) Analyzer {
		return NewSitup(DefaultSitupConfig(), d.clock())
	},
	domain.ExerciseShoulderPress: func(d Deps) Analyzer {
		return NewShoulderPress(DefaultShoulderPressConfig())
	},
	domain.ExerciseBenchPress: func(d Deps) Analyzer {
		return NewBenchPress(DefaultBenchPressConfig())
	},
	domain.ExercisePushup: func(d Deps) Analyzer {
		return NewPushup(DefaultPushupConfig())
	},
	domain.ExerciseLateralRaise: func(d Deps) Analyzer {
		return NewLateralRaise(DefaultLateralRaiseConfig())
	},
}

// New constructs the analyzer for a kind.
func New(kind domain.ExerciseKind, deps Deps) (Analyzer, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, domain.ErrUnknownExercise
	}
	return factory(deps), nil
}

// loadModel fetches a classifier artifact, logging and returning nil on
// failure so the analyzer falls back to its geometric path.
func loadModel(d Deps, file, kind string) classifier.Predictor {
	if d.Models == nil {
		return nil
	}
	model, err := d.Models.Model(file)
	if err != nil {
		log.Printf("%s: classifier unavailable, using fallback: %v", kind, err)
		return nil
	}
	return model
}

func loadScaler(d Deps, file, kind string) *classifier.StandardScaler {
	if d.Models == nil {
		return nil
	}
	scaler, err := d.Models.Scaler(file)
	if err != nil {
		log.Printf("%s: input scaler unavailable: %v", kind, err)
		return nil
	}
	return scaler
}

// validateFrame maps frame defects to the transport failure taxonomy.
func validateFrame(frame domain.Frame) *domain.Failure {
	switch frame.Validate() {
	case nil:
		return nil
	case domain.ErrEmptyFrame:
		return domain.NewFailure(domain.FailureInvalidInput, "Invalid or empty landmarks data")
	default:
		return domain.NewFailure(domain.FailureInvalidInput, "Missing or insufficient landmarks")
	}
}
