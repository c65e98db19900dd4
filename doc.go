/*
Package cputopo discovers the topology of the logical CPUs of a system, that
is, which hardware thread (SMT) of which core in which socket each logical CPU
is, and gets and sets the CPU affinity of threads across operating systems.

[Discover] returns the [Topology] of this system as a list of [CPU] records,
ordered by logical CPU number. On x86 systems other than macOS, discovery pins
a dedicated OS thread to each logical CPU in turn and reads the CPU's APIC ID
using the CPUID instruction; the APIC ID then gets decomposed according to the
vendor-specific bit layout, see package [github.com/thediveo/cputopo/apic].
On macOS, the CPUs are instead discovered by walking the I/O registry, see
package [github.com/thediveo/cputopo/ioreg]. Apple Silicon CPUs don't have
APIC IDs but are tagged with their performance or efficiency cluster types.

	topo, err := cputopo.Discover(cputopo.WithLogger(log))
	if err != nil {
		// topology unknown: treat all CPUs as equivalent.
	}
	for _, cpu := range topo.Siblings(0) {
		fmt.Println(cpu.ID, cpu.Coordinate)
	}

An [AffinityManager] gets and sets the CPU affinity of the calling thread;
[Platform] is the manager for the operating system this package was built for.
On platforms without user-settable affinity, setting the affinity is a no-op.

Logically, [List] and [Set] are equivalent, as they both represent sets of one
or more logical CPUs. Each logical CPU is identified by their 0-based CPU
number. The difference between List and Set lies in their internal
representations, mirroring different representation forms in the Linux syscalls
and procfs pseudo files.

  - [List] internally stores CPU numbers as ranges, such as 1-4, 8-15.
  - [Set] internally stores CPU numbers as bits in a bytestream, such as (hex)
    ff1e.

[List.Set] converts a List into its corresponding Set. In the opposite
direction, [Set.List] converts a Set into its equivalent List.
*/
package cputopo
