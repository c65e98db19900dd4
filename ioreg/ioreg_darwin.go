// Copyright 2024 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

//go:build darwin && cgo

package ioreg

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <stdlib.h>
#include <IOKit/IOKitLib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <Availability.h>

#if (defined __MAC_OS_X_VERSION_MIN_REQUIRED) && (__MAC_OS_X_VERSION_MIN_REQUIRED < 120000)
#define kIOMainPortDefault kIOMasterPortDefault
#endif

#define DT_PLANE "IODeviceTree"

static io_registry_entry_t entry_from_path(const char *path) {
	return IORegistryEntryFromPath(kIOMainPortDefault, path);
}

static kern_return_t child_iterator(io_registry_entry_t entry, io_iterator_t *iter) {
	return IORegistryEntryGetChildIterator(entry, DT_PLANE, iter);
}

// search_property returns the named property of entry, or NULL. The caller
// must release a non-NULL property.
static CFTypeRef search_property(io_registry_entry_t entry, const char *name) {
	CFStringRef key = CFStringCreateWithCString(kCFAllocatorDefault, name, kCFStringEncodingUTF8);
	if (key == NULL) {
		return NULL;
	}
	CFTypeRef ref = IORegistryEntrySearchCFProperty(entry, DT_PLANE, key,
		kCFAllocatorDefault, kNilOptions);
	CFRelease(key);
	return ref;
}

static int is_number(CFTypeRef ref) {
	return CFGetTypeID(ref) == CFNumberGetTypeID();
}

static int is_data(CFTypeRef ref) {
	return CFGetTypeID(ref) == CFDataGetTypeID();
}

static int number_value(CFTypeRef ref, long long *value) {
	return CFNumberGetValue((CFNumberRef)ref, kCFNumberSInt64Type, value) ? 1 : 0;
}

static long data_length(CFTypeRef ref) {
	return (long)CFDataGetLength((CFDataRef)ref);
}

static const void *data_bytes(CFTypeRef ref) {
	return CFDataGetBytePtr((CFDataRef)ref);
}

static void release_property(CFTypeRef ref) {
	CFRelease(ref);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// System is the I/O registry of this system.
var System Registry = ioRegistry{}

type ioRegistry struct{}

func (ioRegistry) Walk(path string, fn func(Node) bool) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	root := C.entry_from_path(cpath)
	if root == 0 {
		return fmt.Errorf("IORegistryEntryFromPath %q failed", path)
	}
	defer C.IOObjectRelease(C.io_object_t(root))

	var iter C.io_iterator_t
	if kret := C.child_iterator(root, &iter); kret != C.KERN_SUCCESS {
		return fmt.Errorf("IORegistryEntryGetChildIterator %q failed, kern_return %d",
			path, int(kret))
	}
	defer C.IOObjectRelease(C.io_object_t(iter))

	for {
		child := C.IOIteratorNext(iter)
		if child == 0 {
			return nil
		}
		more := fn(ioEntry{obj: C.io_registry_entry_t(child)})
		C.IOObjectRelease(child)
		if !more {
			return nil
		}
	}
}

type ioEntry struct {
	obj C.io_registry_entry_t
}

func (e ioEntry) Property(name string) (any, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	ref := C.search_property(e.obj, cname)
	if ref == 0 {
		return nil, false
	}
	defer C.release_property(ref)

	switch {
	case C.is_number(ref) != 0:
		var value C.longlong
		if C.number_value(ref, &value) == 0 {
			return nil, false
		}
		return int64(value), true
	case C.is_data(ref) != 0:
		return C.GoBytes(C.data_bytes(ref), C.int(C.data_length(ref))), true
	}
	return nil, false
}
