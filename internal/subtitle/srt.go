package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const timeSeparator = "-->"

func ParseFile(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseSRT(f)
}

// ParseSRT reads SubRip content. Multi-line cue text is joined with single
// spaces. Blocks without a timing line are skipped. Cue indices must be
// unique; scratch audio is keyed by them.
func ParseSRT(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cues  []Cue
		block []string
		line  int
		start int
	)
	seen := make(map[int]int)

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		defer func() { block = block[:0] }()

		cue, ok, err := parseBlock(block, len(cues)+1)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			return nil
		}
		if first, dup := seen[cue.Index]; dup {
			return fmt.Errorf("line %d: %w %d, first used at line %d", start, ErrDuplicateIndex, cue.Index, first)
		}
		seen[cue.Index] = start
		cues = append(cues, cue)
		return nil
	}

	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if line == 1 {
			text = strings.TrimPrefix(text, "\ufeff")
		}
		if strings.TrimSpace(text) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if len(block) == 0 {
			start = line
		}
		block = append(block, text)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(cues) == 0 {
		return nil, ErrNoCues
	}
	return cues, nil
}

func parseBlock(lines []string, fallbackIndex int) (Cue, bool, error) {
	timingAt := -1
	for i, l := range lines {
		if strings.Contains(l, timeSeparator) {
			timingAt = i
			break
		}
	}
	if timingAt < 0 {
		return Cue{}, false, nil
	}

	index := fallbackIndex
	if timingAt > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(lines[timingAt-1])); err == nil {
			index = n
		}
	}

	start, end, err := parseTimingLine(lines[timingAt])
	if err != nil {
		return Cue{}, false, err
	}

	parts := make([]string, 0, len(lines)-timingAt-1)
	for _, l := range lines[timingAt+1:] {
		if t := strings.TrimSpace(l); t != "" {
			parts = append(parts, t)
		}
	}

	return Cue{
		Index:   index,
		StartMS: start,
		EndMS:   end,
		Text:    strings.Join(parts, " "),
	}, true, nil
}

func parseTimingLine(line string) (int, int, error) {
	parts := strings.SplitN(line, timeSeparator, 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}

	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}

	// Anything after the end timestamp is positioning metadata.
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	end, err := ParseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}

	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// ParseTimestamp converts "HH:MM:SS,mmm" (or with a period) to milliseconds.
func ParseTimestamp(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")

	clock, frac, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if minutes > 59 || seconds > 59 || millis > 999 || hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}

	return ((hours*60+minutes)*60+seconds)*1000 + millis, nil
}

// FormatTimestamp renders milliseconds as an SRT timestamp.
func FormatTimestamp(ms int) string {
	if ms < 0 {
		ms = 0
	}
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
