// Package grading turns detected marks into answers and answers into a
// score.
//
// The Assembler recovers reading order from mark positions, cuts it into
// one chunk of bubbles per question and resolves each chunk: one filled
// bubble selects that alternative, none leaves the question unanswered, and
// two or more make it ambiguous. Ambiguous questions are unanswered; the
// package never guesses which bubble the student meant.
//
// Confidence rates how completely the sheet was read, and GradeAnswers
// scores answers against an answer key on a 0-10 scale.
package grading
