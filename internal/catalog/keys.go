package catalog

import "fmt"

// Star keys share one namespace in a profile's star set:
// lessons use their own id ("3-2"), quizzes "ch3-quiz", activities "ch3-act".

// LessonKey returns the star key for a lesson.
func LessonKey(l Lesson) string {
	return l.ID
}

// QuizKey returns the star key for a chapter quiz.
func QuizKey(chapterID int) string {
	return fmt.Sprintf("ch%d-quiz", chapterID)
}

// ActivityKey returns the star key for a chapter activity.
func ActivityKey(chapterID int) string {
	return fmt.Sprintf("ch%d-act", chapterID)
}

func lessonID(chapterID, index int) string {
	return fmt.Sprintf("%d-%d", chapterID, index+1)
}
