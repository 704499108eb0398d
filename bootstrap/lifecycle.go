// Package bootstrap starts and stops the long-running parts of a node in
// dependency order
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Service is a component with a start/stop lifecycle
type Service interface {
	// Start starts the service
	Start(ctx context.Context) error

	// Stop stops the service
	Stop(ctx context.Context) error
}

// Funcs adapts a pair of functions to Service. Either may be nil.
type Funcs struct {
	StartFunc func(ctx context.Context) error
	StopFunc  func(ctx context.Context) error
}

// Start calls StartFunc
func (f Funcs) Start(ctx context.Context) error {
	if f.StartFunc == nil {
		return nil
	}
	return f.StartFunc(ctx)
}

// Stop calls StopFunc
func (f Funcs) Stop(ctx context.Context) error {
	if f.StopFunc == nil {
		return nil
	}
	return f.StopFunc(ctx)
}

// Lifecycle starts services after their dependencies and stops them in
// reverse start order
type Lifecycle struct {
	// services holds all registered services
	services map[string]Service

	// dependencies tracks service dependencies
	dependencies map[string][]string

	// registered keeps registration order so start order is deterministic
	registered []string

	// startOrder tracks the order services were started
	startOrder []string

	// timeout for each start or stop call
	timeout time.Duration

	logger *zap.Logger
	mutex  sync.Mutex
}

// NewLifecycle creates an empty lifecycle
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		timeout:      30 * time.Second,
		logger:       logger,
	}
}

// SetTimeout sets the timeout for service operations
func (lm *Lifecycle) SetTimeout(timeout time.Duration) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	lm.timeout = timeout
}

// Register registers a service with optional dependencies
func (lm *Lifecycle) Register(name string, service Service, deps ...string) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if service == nil {
		return fmt.Errorf("service cannot be nil")
	}

	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.startOrder != nil {
		return fmt.Errorf("cannot register service %s: lifecycle already started", name)
	}
	if _, exists := lm.services[name]; exists {
		return fmt.Errorf("service %s is already registered", name)
	}

	lm.services[name] = service
	lm.dependencies[name] = deps
	lm.registered = append(lm.registered, name)
	return nil
}

// Start starts all services in dependency order. If one fails, those
// already started are stopped again.
func (lm *Lifecycle) Start(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.startOrder != nil {
		return fmt.Errorf("lifecycle already started")
	}

	order, err := lm.calculateStartOrder()
	if err != nil {
		return fmt.Errorf("failed to calculate start order: %w", err)
	}

	lm.startOrder = make([]string, 0, len(order))
	for _, name := range order {
		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Start(startCtx)
		cancel()

		if err != nil {
			lm.logger.Error("service failed to start", zap.String("service", name), zap.Error(err))
			lm.stopStarted(context.Background())
			return fmt.Errorf("failed to start service %s: %w", name, err)
		}
		lm.startOrder = append(lm.startOrder, name)
		lm.logger.Debug("service started", zap.String("service", name))
	}
	return nil
}

// Stop stops all started services in reverse order and returns the last
// error seen
func (lm *Lifecycle) Stop(ctx context.Context) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()
	return lm.stopStarted(ctx)
}

func (lm *Lifecycle) stopStarted(ctx context.Context) error {
	var lastError error
	for i := len(lm.startOrder) - 1; i >= 0; i-- {
		name := lm.startOrder[i]

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Stop(stopCtx)
		cancel()

		if err != nil {
			lastError = err
			lm.logger.Warn("service failed to stop", zap.String("service", name), zap.Error(err))
			continue
		}
		lm.logger.Debug("service stopped", zap.String("service", name))
	}
	lm.startOrder = nil
	return lastError
}

// calculateStartOrder calculates the order to start services based on dependencies
func (lm *Lifecycle) calculateStartOrder() ([]string, error) {
	// Topological sort using Kahn's algorithm
	inDegree := make(map[string]int)
	graph := make(map[string][]string)

	for _, service := range lm.registered {
		for _, dep := range lm.dependencies[service] {
			if _, exists := lm.services[dep]; !exists {
				return nil, fmt.Errorf("dependency %s of service %s is not registered", dep, service)
			}
			graph[dep] = append(graph[dep], service)
			inDegree[service]++
		}
	}

	queue := []string{}
	for _, service := range lm.registered {
		if inDegree[service] == 0 {
			queue = append(queue, service)
		}
	}

	result := []string{}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range graph[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(lm.services) {
		return nil, fmt.Errorf("circular dependency detected")
	}
	return result, nil
}
