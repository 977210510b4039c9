// Package identity derives the two SampleIdentity formats PoultriScan uses:
// a sequence-numbered dashboard ID and a descriptive training ID. Both are
// computed just-in-time by scanning already-persisted rows, not from an
// in-memory counter, so identity survives process restarts without its own
// state file.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// NextReportID scans the report CSV at path for the highest existing
// sequence number sharing typePrefix and returns "PS-<TYPEPREFIX>-<NNNN>"
// for the next one, zero-padded to four digits. A missing or header-only
// file yields sequence 1.
func NextReportID(path, typePrefix string) (string, error) {
	max := 0
	prefix := fmt.Sprintf("PS-%s-", strings.ToUpper(typePrefix))

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("%s%04d", prefix, 1), nil
		}
		return "", fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue // header
		}
		fields := strings.Split(sc.Text(), ",")
		if len(fields) < 2 {
			continue
		}
		id := strings.TrimSpace(fields[1])
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("identity: scan %s: %w", path, err)
	}
	return fmt.Sprintf("%s%04d", prefix, max+1), nil
}

// NextTrainingID finds the next replica number for a given meatType/storage
// pair by scanning the training canonical CSV, and returns
// "<MEAT>_<STORAGE>_<REPLICA>".
func NextTrainingID(path, meatType, storage string) (string, error) {
	max := 0
	want := fmt.Sprintf("%s_%s_", meatType, storage)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("%s%d", want, 1), nil
		}
		return "", fmt.Errorf("identity: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Split(sc.Text(), ",")
		if len(fields) < 1 {
			continue
		}
		id := strings.TrimSpace(fields[0])
		if !strings.HasPrefix(id, want) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(id, want))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("identity: scan %s: %w", path, err)
	}
	return fmt.Sprintf("%s%d", want, max+1), nil
}
