package sim

import "github.com/zeusync/posebridge/internal/core/transform"

// HumanRig is the demo skeleton: body, face and hair parts.
func HumanRig() [][]string {
	return [][]string{
		{
			"n_root", "n_hara", "j_kosi", "j_sebo_a", "j_sebo_b", "j_sebo_c", "j_kubi", "j_kao",
			"j_sako_l", "j_sako_r", "j_ude_a_l", "j_ude_a_r", "j_ude_b_l", "j_ude_b_r",
			"j_te_l", "j_te_r", "j_asi_a_l", "j_asi_a_r", "j_asi_b_l", "j_asi_b_r",
			"j_asi_c_l", "j_asi_c_r", "j_asi_d_l", "j_asi_d_r",
		},
		{"j_f_ago", "j_f_hoho_l", "j_f_hoho_r", "j_f_mayu_l", "j_f_mayu_r", "j_f_eye_l", "j_f_eye_r"},
		{"j_kami_a", "j_kami_b", "j_kami_f_l", "j_kami_f_r"},
	}
}

// SpawnPoint places demo characters on a line two units apart.
func SpawnPoint(i int) transform.Vec3 {
	return transform.Vec3{X: float32(i) * 2}
}
