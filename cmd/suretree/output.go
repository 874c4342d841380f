package main

import (
	"fmt"
	"io"
)

// Output is a uniform interface to write to some stream, letting a command
// write through w (results) and log (diagnostics) without caring which
// concrete writer backs either. Grounded on the teacher's cli/output.go.
type Output interface {
	Print(text string) (int, error)
	Println(text string) (int, error)
	Printf(format string, args ...interface{}) (int, error)
	Printfln(format string, args ...interface{}) (int, error)
}

// PlainOutput writes straight through to Device with no framing.
type PlainOutput struct {
	Device io.Writer
}

func (o *PlainOutput) Print(text string) (int, error) {
	return o.Device.Write([]byte(text))
}

func (o *PlainOutput) Println(text string) (int, error) {
	n1, err := o.Device.Write([]byte(text))
	if err != nil {
		return n1, err
	}
	n2, err := o.Device.Write([]byte{'\n'})
	return n1 + n2, err
}

func (o *PlainOutput) Printf(format string, args ...interface{}) (int, error) {
	return o.Device.Write([]byte(fmt.Sprintf(format, args...)))
}

func (o *PlainOutput) Printfln(format string, args ...interface{}) (int, error) {
	return o.Device.Write([]byte(fmt.Sprintf(format+"\n", args...)))
}
