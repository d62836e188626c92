// SPDX-License-Identifier: GPL-3.0-or-later

package beacon

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeApplyEnrichesEventWithoutMutatingScope(t *testing.T) {
	s := NewScope(10)
	s.SetTag("env", "prod")
	s.SetExtra("build", 42)
	s.SetUser(&User{ID: "u1"})
	s.AddBreadcrumb(Breadcrumb{Message: "hello"})

	e := NewEvent()
	s.Apply(e)

	assert.Equal(t, "prod", e.Tags["env"])
	assert.Equal(t, 42, e.Extra["build"])
	require.NotNil(t, e.User)
	assert.Equal(t, "u1", e.User.ID)
	require.Len(t, e.Breadcrumbs, 1)

	// Mutate the event's copies; scope's own state must be unaffected.
	e.Tags["env"] = "mutated"
	e.User.ID = "mutated"
	e.Breadcrumbs[0].Message = "mutated"

	e2 := NewEvent()
	s.Apply(e2)
	assert.Equal(t, "prod", e2.Tags["env"])
	assert.Equal(t, "u1", e2.User.ID)
	assert.Equal(t, "hello", e2.Breadcrumbs[0].Message)
}

func TestScopeApplyDoesNotOverrideExistingEventFields(t *testing.T) {
	s := NewScope(10)
	s.SetTag("env", "prod")

	e := NewEvent()
	e.Tags = map[string]string{"env": "staging"}
	s.Apply(e)

	assert.Equal(t, "staging", e.Tags["env"])
}

func TestScopeRemoveTag(t *testing.T) {
	s := NewScope(10)
	s.SetTag("k", "v")
	s.RemoveTag("k")

	e := NewEvent()
	s.Apply(e)
	assert.NotContains(t, e.Tags, "k")
}

func TestScopeCloneIsDeepCopy(t *testing.T) {
	s := NewScope(10)
	s.SetTag("k", "v")
	s.SetUser(&User{ID: "u1"})
	s.AddBreadcrumb(Breadcrumb{Message: "a"})

	clone := s.Clone()
	clone.SetTag("k", "changed")
	clone.SetUser(&User{ID: "changed"})

	e := NewEvent()
	s.Apply(e)
	assert.Equal(t, "v", e.Tags["k"])
	assert.Equal(t, "u1", e.User.ID)
}

func TestScopeClear(t *testing.T) {
	s := NewScope(10)
	s.SetTag("k", "v")
	s.SetUser(&User{ID: "u1"})
	s.AddBreadcrumb(Breadcrumb{Message: "a"})
	s.Clear()

	e := NewEvent()
	s.Apply(e)
	assert.Empty(t, e.Tags)
	assert.Nil(t, e.User)
	assert.Empty(t, e.Breadcrumbs)
}

func TestScopeEventProcessorOrder(t *testing.T) {
	s := NewScope(10)
	var order []int
	s.AddEventProcessor(EventProcessorFunc(func(e *Event) bool {
		order = append(order, 1)
		return true
	}))
	s.AddEventProcessor(EventProcessorFunc(func(e *Event) bool {
		order = append(order, 2)
		return true
	}))

	e := NewEvent()
	for _, p := range s.processorSnapshot() {
		p.Process(e)
	}
	assert.Equal(t, []int{1, 2}, order)
}

func TestScopeConcurrentMutatorsDoNotRace(t *testing.T) {
	s := NewScope(50)
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetTag("k", "v")
			s.AddBreadcrumb(Breadcrumb{Message: "m"})
			e := NewEvent()
			s.Apply(e)
		}(i)
	}
	wg.Wait()
}
