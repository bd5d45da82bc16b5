package scheduler_test

import (
	"testing"

	"github.com/kluzzebass/logspan/internal/indexbuild"
	"github.com/kluzzebass/logspan/internal/model"
	"github.com/kluzzebass/logspan/internal/scheduler"
)

func TestAddDescriptorWithoutCronIsNoop(t *testing.T) {
	s, err := scheduler.New(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Stop()

	desc := &model.Descriptor{Name: "a", Source: "test"}
	if err := s.AddDescriptor(desc, indexbuild.Options{}); err != nil {
		t.Fatalf("add descriptor without cron: %v", err)
	}
}

func TestAddDescriptorRegistersJob(t *testing.T) {
	s, err := scheduler.New(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Stop()

	desc := &model.Descriptor{Name: "a", Source: "test", ReindexCron: "*/5 * * * *"}
	if err := s.AddDescriptor(desc, indexbuild.Options{}); err != nil {
		t.Fatalf("add descriptor: %v", err)
	}
}

func TestAddDescriptorRejectsDuplicate(t *testing.T) {
	s, err := scheduler.New(nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Stop()

	desc := &model.Descriptor{Name: "a", Source: "test", ReindexCron: "*/5 * * * *"}
	if err := s.AddDescriptor(desc, indexbuild.Options{}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := s.AddDescriptor(desc, indexbuild.Options{}); err == nil {
		t.Fatalf("expected error registering the same descriptor twice")
	}
}
