// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ioctl ports the handful of Linux ioctl.h macros and device-file
// helpers the sysfs SPI and GPIO backends need, trimmed from periph.io's
// host/fs. The SPI backend's spidev requests use the IOW encoder; the GPIO
// backend uses only the file helpers.
package ioctl

import (
	"errors"
	"os"
)

const (
	nrbits   uint = 8
	typebits uint = 8

	nrshift   uint = 0
	typeshift      = nrshift + nrbits
	sizeshift      = typeshift + typebits
	dirshift       = sizeshift + sizebits
)

const (
	dirNone  uint = 0
	dirWrite uint = 1
	dirRead  uint = 2
)

func ioc(dir, typ, nr, size uint) uint {
	return (dir << dirshift) | (typ << typeshift) | (nr << nrshift) | (size << sizeshift)
}

// IOW defines an ioctl with write (userland perspective) parameters.
func IOW(typ, nr, size uint) uint {
	return ioc(dirWrite, typ, nr, size)
}

// IOWR defines an ioctl with both read and write parameters.
func IOWR(typ, nr, size uint) uint {
	return ioc(dirRead|dirWrite, typ, nr, size)
}

// Ioctler is a file handle that supports ioctl calls.
type Ioctler interface {
	Ioctl(op uint, data uintptr) error
}

var errInhibited = errors.New("ioctl: file I/O is inhibited for testing")

var inhibited bool

// Inhibit prevents any future Open call from succeeding. It is meant to be
// called from tests that must not touch real hardware.
func Inhibit() {
	inhibited = true
}

// Open opens a device node for ioctl access, refusing to do so if Inhibit
// was called.
func Open(path string, flag int) (*File, error) {
	if inhibited {
		return nil, errInhibited
	}
	f, err := os.OpenFile(path, flag, 0600)
	if err != nil {
		return nil, err
	}
	return &File{f}, nil
}

// File is a superset of os.File that can send ioctls.
type File struct {
	*os.File
}

// Ioctl sends an ioctl to the file handle.
func (f *File) Ioctl(op uint, data uintptr) error {
	return ioctl(f.Fd(), op, data)
}
