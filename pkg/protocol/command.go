// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	uuidKey = "uuid"
	typeKey = "type"
)

// EntityCommand starts a task or adds a peripheral. It marshals flat, the
// parameters next to uuid and type.
type EntityCommand struct {
	UUID   string
	Type   string
	Params map[string]interface{}
}

func (c EntityCommand) MarshalJSON() ([]byte, error) {
	doc := make(map[string]interface{}, len(c.Params)+2)
	for k, v := range c.Params {
		doc[k] = v
	}
	doc[uuidKey] = c.UUID
	doc[typeKey] = c.Type
	return json.Marshal(doc)
}

func (c *EntityCommand) UnmarshalJSON(data []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	id, ok := doc[uuidKey].(string)
	if !ok {
		return fmt.Errorf("command %s is not a string", uuidKey)
	}
	typ, ok := doc[typeKey].(string)
	if !ok {
		return fmt.Errorf("command %s is not a string", typeKey)
	}
	delete(doc, uuidKey)
	delete(doc, typeKey)
	c.UUID, c.Type, c.Params = id, typ, doc
	return nil
}

// EntityRef stops a task or removes a peripheral.
type EntityRef struct {
	UUID string `json:"uuid"`
}

// PeripheralCommands is the peripheral section of a command envelope.
type PeripheralCommands struct {
	Add    []EntityCommand `json:"add,omitempty"`
	Remove []EntityRef     `json:"remove,omitempty"`
}

func (p *PeripheralCommands) empty() bool {
	return p == nil || (len(p.Add) == 0 && len(p.Remove) == 0)
}

// TaskCommands is the task section of a command envelope.
type TaskCommands struct {
	Start []EntityCommand `json:"start,omitempty"`
	Stop  []EntityRef     `json:"stop,omitempty"`
}

func (t *TaskCommands) empty() bool {
	return t == nil || (len(t.Start) == 0 && len(t.Stop) == 0)
}

// Command is a server to controller envelope.
type Command struct {
	Envelope
	Peripheral *PeripheralCommands `json:"peripheral,omitempty"`
	Task       *TaskCommands       `json:"task,omitempty"`
}

// Empty reports whether c carries no command at all.
func (c Command) Empty() bool {
	return c.Peripheral.empty() && c.Task.empty()
}

func (c Command) MarshalJSON() ([]byte, error) {
	type command Command
	out := command(c)
	out.Type = TypeCommand
	if out.Peripheral.empty() {
		out.Peripheral = nil
	}
	if out.Task.empty() {
		out.Task = nil
	}
	return json.Marshal(out)
}

// Batch accumulates commands for one controller.
type Batch struct {
	peripherals PeripheralCommands
	tasks       TaskCommands
}

func (b *Batch) AddPeripheral(cmd EntityCommand) {
	b.peripherals.Add = append(b.peripherals.Add, cmd)
}

func (b *Batch) RemovePeripheral(ref EntityRef) {
	b.peripherals.Remove = append(b.peripherals.Remove, ref)
}

func (b *Batch) StartTask(cmd EntityCommand) {
	b.tasks.Start = append(b.tasks.Start, cmd)
}

func (b *Batch) StopTask(ref EntityRef) {
	b.tasks.Stop = append(b.tasks.Stop, ref)
}

// Command builds the envelope of every command added so far. Sections with
// no command are left out.
func (b *Batch) Command(requestID string) Command {
	cmd := Command{Envelope: Envelope{Type: TypeCommand, RequestID: requestID}}
	if !b.peripherals.empty() {
		p := b.peripherals
		cmd.Peripheral = &p
	}
	if !b.tasks.empty() {
		t := b.tasks
		cmd.Task = &t
	}
	return cmd
}

// ErrorFrame builds the frame sent to a controller before its connection
// is closed because of err.
func ErrorFrame(err error) []byte {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	data, _ := json.Marshal(map[string]string{"error": msg})
	return data
}
