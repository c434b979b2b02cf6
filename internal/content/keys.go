package content

import (
	"fmt"
	"strconv"
	"strings"
)

// SectionKey addresses a whole section: "section-{s}".
func SectionKey(s int) string {
	return "section-" + strconv.Itoa(s)
}

// ElementKey addresses one element: "{s}-{e}".
func ElementKey(s, e int) string {
	return fmt.Sprintf("%d-%d", s, e)
}

// DeeperKey addresses the follow-ups of one question: "{p}-{q}".
func DeeperKey(p, q int) string {
	return fmt.Sprintf("%d-%d", p, q)
}

// DeeperQuestionKey addresses one follow-up question: "{p}-{q}-{order}-{i}".
func DeeperQuestionKey(p, q, order, i int) (string, error) {
	if order != 2 && order != 3 {
		return "", ErrInvalidQuestionOrder
	}
	return fmt.Sprintf("%d-%d-%d-%d", p, q, order, i), nil
}

// Key is a parsed composite key.
type Key struct {
	Section int
	Element int // -1 for section keys
	Order   int // 0 unless the key addresses a follow-up question
	Index   int
}

// ParseKey parses any key produced by the functions above.
func ParseKey(key string) (Key, error) {
	if rest, ok := strings.CutPrefix(key, "section-"); ok {
		s, err := strconv.Atoi(rest)
		if err != nil || s < 0 {
			return Key{}, fmt.Errorf("%q: %w", key, ErrInvalidKey)
		}
		return Key{Section: s, Element: -1}, nil
	}

	parts := strings.Split(key, "-")
	if len(parts) != 2 && len(parts) != 4 {
		return Key{}, fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Key{}, fmt.Errorf("%q: %w", key, ErrInvalidKey)
		}
		nums[i] = n
	}
	k := Key{Section: nums[0], Element: nums[1]}
	if len(nums) == 4 {
		if nums[2] != 2 && nums[2] != 3 {
			return Key{}, fmt.Errorf("%q: %w", key, ErrInvalidQuestionOrder)
		}
		k.Order, k.Index = nums[2], nums[3]
	}
	return k, nil
}

// CheckKey verifies that key parses and addresses an existing section or
// element. Follow-up indexes are not checked against DeeperQuestions.
func (p *Product) CheckKey(key string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	if k.Element < 0 {
		_, err = p.section(k.Section)
		return err
	}
	_, err = p.element(k.Section, k.Element)
	return err
}

// CheckElement verifies that element e of section s exists.
func (p *Product) CheckElement(s, e int) error {
	_, err := p.element(s, e)
	return err
}
