package service

import (
	"sync"

	"github.com/ludo-technologies/qarun/domain"
	"go.uber.org/zap"
)

// WrapperLoader constructs wrapper instances by wrapper type
type WrapperLoader interface {
	Load(wrapperType string, cfg map[string]any, logger *zap.Logger) (*domain.WrapperInstance, error)
}

// WrapperFactoryImpl holds wrapper-type constructors. Constructors run only
// when their type is first loaded.
type WrapperFactoryImpl struct {
	process      domain.ProcessExecutor
	fs           domain.FileSystem
	constructors map[string]domain.WrapperConstructor
	mu           sync.RWMutex
}

// NewWrapperFactory creates a factory injecting the given services into every wrapper
func NewWrapperFactory(process domain.ProcessExecutor, fs domain.FileSystem) *WrapperFactoryImpl {
	return &WrapperFactoryImpl{
		process:      process,
		fs:           fs,
		constructors: make(map[string]domain.WrapperConstructor),
	}
}

// Register adds or replaces the constructor for a wrapper type
func (f *WrapperFactoryImpl) Register(wrapperType string, ctor domain.WrapperConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[wrapperType] = ctor
}

// RegisterAll registers every constructor in the map
func (f *WrapperFactoryImpl) RegisterAll(ctors map[string]domain.WrapperConstructor) {
	for wrapperType, ctor := range ctors {
		f.Register(wrapperType, ctor)
	}
}

// Has reports whether a wrapper type is registered
func (f *WrapperFactoryImpl) Has(wrapperType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[wrapperType]
	return ok
}

// Load constructs a wrapper of the given type. An unregistered type yields
// a WRAPPER_NOT_FOUND domain error wrapping domain.ErrWrapperNotFound.
func (f *WrapperFactoryImpl) Load(wrapperType string, cfg map[string]any, logger *zap.Logger) (*domain.WrapperInstance, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[wrapperType]
	f.mu.RUnlock()
	if !ok {
		return nil, domain.NewWrapperNotFoundError(wrapperType)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = map[string]any{}
	}

	svc := domain.Services{
		Process: f.process,
		FS:      f.fs,
		Logger:  logger.With(zap.String("wrapper", wrapperType)),
	}

	instance, err := ctor(svc, cfg)
	if err != nil {
		return nil, domain.NewConfigError("failed to construct wrapper "+wrapperType, err)
	}
	if instance == nil {
		return nil, domain.NewConfigError("wrapper constructor returned nothing: "+wrapperType, nil)
	}
	if instance.Type == "" {
		instance.Type = wrapperType
	}
	return instance, nil
}
