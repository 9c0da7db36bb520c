package academia

// JSON field names below are part of the output contract consumed by
// the frontend, do not rename them.

type CalendarEntry struct {
	Date      string `json:"date"`
	DayNumber string `json:"day_number"`
	DayName   string `json:"day_name"`
	Content   string `json:"content"`
	DayOrder  string `json:"day_order"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Year      int    `json:"year"`
	Source    string `json:"source"`
}

type AttendanceEntry struct {
	RowNumber            int    `json:"row_number"`
	SubjectCode          string `json:"subject_code"`
	CourseTitle          string `json:"course_title"`
	Category             string `json:"category"`
	FacultyName          string `json:"faculty_name"`
	Slot                 string `json:"slot"`
	Room                 string `json:"room"`
	HoursConducted       string `json:"hours_conducted"`
	HoursAbsent          string `json:"hours_absent"`
	Attendance           string `json:"attendance"`
	AttendancePercentage string `json:"attendance_percentage"`
}

type AttendanceMetadata struct {
	GeneratedAt  string `json:"generated_at"`
	Source       string `json:"source"`
	AcademicYear string `json:"academic_year"`
	Semester     int    `json:"semester"`
	Institution  string `json:"institution"`
	College      string `json:"college"`
	ScrapedAt    string `json:"scraped_at"`
}

type AttendanceSummary struct {
	TotalSubjects               int    `json:"total_subjects"`
	TheorySubjects              int    `json:"theory_subjects"`
	LabSubjects                 int    `json:"lab_subjects"`
	OtherSubjects               int    `json:"other_subjects"`
	TotalHoursConducted         int    `json:"total_hours_conducted"`
	TotalHoursAbsent            int    `json:"total_hours_absent"`
	OverallAttendancePercentage string `json:"overall_attendance_percentage"`
}

type AttendanceGroups struct {
	Theory []AttendanceEntry `json:"theory"`
	Lab    []AttendanceEntry `json:"lab"`
	Other  []AttendanceEntry `json:"other"`
}

type AttendanceReport struct {
	Metadata    AttendanceMetadata `json:"metadata"`
	Summary     AttendanceSummary  `json:"summary"`
	Subjects    AttendanceGroups   `json:"subjects"`
	AllSubjects []AttendanceEntry  `json:"all_subjects"`
}

type Assessment struct {
	AssessmentName string `json:"assessment_name"`
	TotalMarks     string `json:"total_marks"`
	MarksObtained  string `json:"marks_obtained"`
	Percentage     string `json:"percentage"`
}

type MarksEntry struct {
	CourseCode       string       `json:"course_code"`
	CourseTitle      string       `json:"course_title"`
	SubjectType      string       `json:"subject_type"`
	Assessments      []Assessment `json:"assessments"`
	TotalAssessments int          `json:"total_assessments"`
}

type MarksMetadata struct {
	GeneratedAt  string `json:"generated_at"`
	Source       string `json:"source"`
	AcademicYear string `json:"academic_year"`
	Institution  string `json:"institution"`
	College      string `json:"college"`
	ScrapedAt    string `json:"scraped_at"`
}

type MarksSummary struct {
	TotalCourses     int `json:"total_courses"`
	TheoryCourses    int `json:"theory_courses"`
	LabCourses       int `json:"lab_courses"`
	OtherCourses     int `json:"other_courses"`
	TotalAssessments int `json:"total_assessments"`
}

type MarksGroups struct {
	Theory []MarksEntry `json:"theory"`
	Lab    []MarksEntry `json:"lab"`
	Other  []MarksEntry `json:"other"`
}

type MarksReport struct {
	Metadata   MarksMetadata `json:"metadata"`
	Summary    MarksSummary  `json:"summary"`
	Courses    MarksGroups   `json:"courses"`
	AllCourses []MarksEntry  `json:"all_courses"`
}

type TimetableCourse struct {
	RowNumber   int      `json:"row_number"`
	CourseTitle string   `json:"course_title"`
	Slot        string   `json:"slot"`
	AllCells    []string `json:"all_cells"`
	BatchNumber string   `json:"batch_number,omitempty"`
}

type SlotDetail struct {
	SlotCode    string `json:"slot_code"`
	CourseTitle string `json:"course_title"`
	SlotType    string `json:"slot_type"`
	IsAlternate bool   `json:"is_alternate"`
}

type DayOrder struct {
	DayNumber int                   `json:"day_number"`
	TimeSlots map[string]SlotDetail `json:"time_slots"`
}

type TimetableMetadata struct {
	GeneratedAt  string `json:"generated_at"`
	Source       string `json:"source"`
	AcademicYear string `json:"academic_year"`
	Format       string `json:"format"`
	BatchNumber  string `json:"batch_number"`
	BatchName    string `json:"batch_name"`
}

type Timetable struct {
	Metadata    TimetableMetadata   `json:"metadata"`
	TimeSlots   []string            `json:"time_slots"`
	SlotMapping map[string]string   `json:"slot_mapping"`
	Timetable   map[string]DayOrder `json:"timetable"`
}
