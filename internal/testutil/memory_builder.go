package testutil

import (
	"fmt"

	"github.com/oron-mozes/creo-sub000/core"
)

// MemoryBuilder constructs a populated SessionMemory.
//
//	mem := NewMemoryBuilder("s1", "u1").Stage(core.StageCampaignBrief).Turns(25).Build()
type MemoryBuilder struct {
	mem *core.SessionMemory
	err error
}

// NewMemoryBuilder starts a builder for sessionID owned by userID.
func NewMemoryBuilder(sessionID, userID string) *MemoryBuilder {
	return &MemoryBuilder{mem: core.NewSessionMemory(sessionID, userID)}
}

// Message appends a single history entry (chainable).
func (b *MemoryBuilder) Message(role, text string) *MemoryBuilder {
	b.mem.AppendMessage(role, text, "")
	return b
}

// Turns appends n alternating user/assistant entries with texts "msg-00", "msg-01"... (chainable).
func (b *MemoryBuilder) Turns(n int) *MemoryBuilder {
	for i := 0; i < n; i++ {
		role := core.RoleUser
		if i%2 == 1 {
			role = core.RoleAssistant
		}
		b.mem.AppendMessage(role, fmt.Sprintf("msg-%02d", i), "")
	}
	return b
}

// Stage sets the workflow stage (chainable).
func (b *MemoryBuilder) Stage(s core.WorkflowStage) *MemoryBuilder {
	if _, err := b.mem.SetStage(s); err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// Profile sets the business profile (chainable).
func (b *MemoryBuilder) Profile(p map[string]any) *MemoryBuilder {
	b.mem.SetBusinessProfile(p)
	return b
}

// Brief sets the campaign brief (chainable).
func (b *MemoryBuilder) Brief(p map[string]any) *MemoryBuilder {
	b.mem.SetCampaignBrief(p)
	return b
}

// Status sets a worker status (chainable).
func (b *MemoryBuilder) Status(worker, status string) *MemoryBuilder {
	b.mem.SetWorkerStatus(worker, status)
	return b
}

// Build returns the memory. It panics if a builder step failed.
func (b *MemoryBuilder) Build() *core.SessionMemory {
	if b.err != nil {
		panic(b.err)
	}
	return b.mem
}
